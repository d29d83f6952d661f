// Booksync - Accounting Report Sync and Cache Engine
// Copyright 2026 J. Held (jmheld)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jmheld/booksync

package validation

import (
	"strings"
	"testing"
)

type syncRequest struct {
	Period int  `validate:"omitempty,gte=2000,lte=2100"`
	Force  bool `validate:"omitempty"`
}

func TestStruct_Valid(t *testing.T) {
	if err := Struct(&syncRequest{Period: 2024}); err != nil {
		t.Errorf("Struct returned %v, want nil", err)
	}
	if err := Struct(&syncRequest{}); err != nil {
		t.Errorf("zero request returned %v, want nil", err)
	}
}

func TestStruct_OutOfRange(t *testing.T) {
	err := Struct(&syncRequest{Period: 1890})
	if err == nil {
		t.Fatal("Struct accepted period 1890")
	}
	if len(err.Fields) != 1 {
		t.Fatalf("Fields = %v, want one error", err.Fields)
	}
	fe := err.Fields[0]
	if fe.Field != "Period" || fe.Tag != "gte" {
		t.Errorf("field error = %+v, want Period/gte", fe)
	}
	if !strings.Contains(fe.Message, "2000") {
		t.Errorf("message %q does not mention the bound", fe.Message)
	}
}

func TestStruct_MultipleErrors(t *testing.T) {
	type form struct {
		Name string `validate:"required"`
		Mode string `validate:"required,oneof=sandbox production"`
	}

	err := Struct(&form{Mode: "staging"})
	if err == nil {
		t.Fatal("Struct accepted invalid form")
	}
	if len(err.Fields) != 2 {
		t.Fatalf("Fields = %+v, want two errors", err.Fields)
	}
	if !strings.Contains(err.Error(), ";") {
		t.Errorf("combined message %q missing separator", err.Error())
	}
}
