package config

import "testing"

func TestBoundingBoxContains(t *testing.T) {
	box := BoundingBox{MinLat: 43.0, MaxLat: 43.3, MinLon: -79.3, MaxLon: -79.0}

	if !box.Contains(43.16, -79.24) {
		t.Fatal("expected point inside box to be contained")
	}
	if box.Contains(44.0, -79.24) {
		t.Fatal("expected point outside lat range to be excluded")
	}
	if box.Contains(43.16, -80.0) {
		t.Fatal("expected point outside lon range to be excluded")
	}
}

func TestLoadRosterRoundTrip(t *testing.T) {
	roster, err := LoadRoster("testdata/roster.yaml")
	if err != nil {
		t.Fatalf("load roster: %v", err)
	}
	if len(roster.Regions) != 1 {
		t.Fatalf("expected 1 region, got %d", len(roster.Regions))
	}
	region := roster.Regions[0]
	if region.ShortCode != "sct" {
		t.Errorf("short_code = %q, want sct", region.ShortCode)
	}
	if len(region.Bridges) != 1 {
		t.Fatalf("expected 1 bridge, got %d", len(region.Bridges))
	}
	if len(roster.VesselRegions) != 1 || roster.VesselRegions[0].Name != "welland" {
		t.Fatalf("expected a welland vessel region, got %+v", roster.VesselRegions)
	}
}

func TestLoadRosterMissingFile(t *testing.T) {
	if _, err := LoadRoster("testdata/does-not-exist.yaml"); err == nil {
		t.Fatal("expected an error for a missing roster file")
	}
}
