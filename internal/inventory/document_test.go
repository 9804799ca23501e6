package inventory

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func sampleDocument() *Document {
	return &Document{
		Hostname:     "WORKSTATION01",
		FullHostname: "WORKSTATION01.example.com",
		Architecture: "amd64",
		Environment:  map[string]string{"PATH": "C:\\Windows"},
		NetworkAdapters: []NetworkAdapter{
			{Name: "Ethernet", MAC: "00:11:22:33:44:55", Addresses: []string{"10.0.0.5"}},
		},
		PhysicalDrives: []PhysicalDrive{
			{Path: `\\.\PHYSICALDRIVE0`, Serial: "ABC123", SizeBytes: 512110190592, Type: "NVMe"},
		},
	}
}

func TestDocumentToXML(t *testing.T) {
	doc := sampleDocument()
	data, err := doc.ToXML()
	if err != nil {
		t.Fatal(err)
	}
	s := string(data)
	if !strings.Contains(s, "<SystemIdentity>") {
		t.Fatalf("expected SystemIdentity root element, got:\n%s", s)
	}
	if !strings.Contains(s, "WORKSTATION01") {
		t.Fatalf("expected hostname in output")
	}
	if !strings.Contains(s, "PHYSICALDRIVE0") {
		t.Fatalf("expected physical drive path in output")
	}
}

func TestDocumentToJSON(t *testing.T) {
	doc := sampleDocument()
	data, err := doc.ToJSON()
	if err != nil {
		t.Fatal(err)
	}
	var round map[string]any
	if err := json.Unmarshal(data, &round); err != nil {
		t.Fatalf("expected valid JSON: %v", err)
	}
	if round["hostname"] != "WORKSTATION01" {
		t.Fatalf("expected hostname field, got %+v", round["hostname"])
	}
}

func TestDocumentJSONRoundTripPreservesNestedSlices(t *testing.T) {
	doc := sampleDocument()
	data, err := doc.ToJSON()
	if err != nil {
		t.Fatal(err)
	}
	var round Document
	if err := json.Unmarshal(data, &round); err != nil {
		t.Fatalf("unmarshal round trip: %v", err)
	}
	if diff := cmp.Diff(doc.NetworkAdapters, round.NetworkAdapters); diff != "" {
		t.Fatalf("NetworkAdapters mismatch after round trip (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(doc.PhysicalDrives, round.PhysicalDrives); diff != "" {
		t.Fatalf("PhysicalDrives mismatch after round trip (-want +got):\n%s", diff)
	}
}

func TestCollectFillsCommonFields(t *testing.T) {
	doc, err := Collect(nil)
	if err != nil {
		t.Fatal(err)
	}
	if doc.Architecture == "" {
		t.Fatal("expected Architecture to be populated from runtime.GOARCH")
	}
	if doc.CommandLine == "" {
		t.Fatal("expected CommandLine to be populated from os.Args")
	}
}
