package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/deixis/fnreport/internal/config"
	"github.com/deixis/fnreport/internal/payload"
	"github.com/deixis/fnreport/internal/record"
	"github.com/deixis/fnreport/internal/report"
	"github.com/deixis/fnreport/internal/workflow"
)

func TestWriteRecord_RendersBack(t *testing.T) {
	in, err := payload.New(payload.Input, payload.JSON, []byte(`{"input_test": "input_value"}`))
	if err != nil {
		t.Fatal(err)
	}
	run := &report.Run{
		ID:        "run-1",
		CreatedAt: time.Now().UTC(),
		Record:    &record.Record{Name: "discount", Instructions: 1001, Input: in, Success: true},
	}

	var buf bytes.Buffer
	writeRecord(&buf, run)

	e := &workflow.Engine{Config: &config.Config{}}
	rec, err := e.Decode(buf.Bytes())
	if err != nil {
		t.Fatalf("Decode(show -json output): %v", err)
	}
	if rec.Name != "discount" || rec.Instructions != 1001 || rec.InputSize() != 28 {
		t.Errorf("decoded record = %+v", rec)
	}
	if rec.ScaleFactor != 1 {
		t.Errorf("ScaleFactor = %v, want 1", rec.ScaleFactor)
	}
}
