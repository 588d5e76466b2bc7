// Copyright 2026 The tcbot Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"strings"
	"testing"
)

type sampleRecord struct {
	_       struct{} `cbor:",toarray"`
	ID      int32
	Name    string
	Version int16
}

type sampleKey struct {
	Server string `json:"server"`
	Build  int    `json:"build"`
}

func TestMarshalUnmarshalRoundtrip(t *testing.T) {
	original := sampleRecord{ID: 4242, Name: "Build :: Tests", Version: 6}

	data, err := Marshal(original)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded sampleRecord
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded != original {
		t.Errorf("roundtrip mismatch: got %+v, want %+v", decoded, original)
	}
}

func TestToArrayOmitsFieldNames(t *testing.T) {
	data, err := Marshal(sampleRecord{ID: 1, Name: "x", Version: 6})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	// 0x83: array of three items.
	if data[0] != 0x83 {
		t.Errorf("first byte = %#x, want 0x83 (3-element array)", data[0])
	}

	diagnostic, err := Diagnose(data)
	if err != nil {
		t.Fatalf("Diagnose: %v", err)
	}
	if strings.Contains(diagnostic, "Name") {
		t.Errorf("toarray encoding leaked a field name: %s", diagnostic)
	}
}

func TestMarshalDeterministic(t *testing.T) {
	value := map[string]int{"tests": 3, "problems": 1, "stat": 7}

	first, err := Marshal(value)
	if err != nil {
		t.Fatalf("first Marshal: %v", err)
	}
	for range 10 {
		again, err := Marshal(value)
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		if !bytes.Equal(first, again) {
			t.Fatalf("deterministic encoding violated: %x != %x", first, again)
		}
	}
}

func TestJSONTagFallback(t *testing.T) {
	original := sampleKey{Server: "apache", Build: 99}

	data, err := Marshal(original)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	diagnostic, err := Diagnose(data)
	if err != nil {
		t.Fatalf("Diagnose: %v", err)
	}
	if !strings.Contains(diagnostic, `"server"`) {
		t.Errorf("json tag not used as map key: %s", diagnostic)
	}

	var decoded sampleKey
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded != original {
		t.Errorf("got %+v, want %+v", decoded, original)
	}
}

func TestDiagnoseShowsArrayRecord(t *testing.T) {
	data, err := Marshal(sampleRecord{ID: 7, Name: "Ignite", Version: 6})
	if err != nil {
		t.Fatal(err)
	}
	diagnosis, err := Diagnose(data)
	if err != nil {
		t.Fatalf("Diagnose: %v", err)
	}
	if diagnosis != `[7, "Ignite", 6]` {
		t.Errorf("Diagnose = %s", diagnosis)
	}
	if _, err := Diagnose([]byte{0xff, 0x00}); err == nil {
		t.Error("Diagnose accepted malformed CBOR")
	}
}

func TestDecodeAnyUsesStringKeys(t *testing.T) {
	data, err := Marshal(map[string]any{"count": 7})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var decoded any
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if _, ok := decoded.(map[string]any); !ok {
		t.Fatalf("decoded %T, want map[string]any", decoded)
	}
}
