package main

import (
	"testing"

	"github.com/indigo-protocol/indigo-go/pkg/model"
)

func TestSplitPath(t *testing.T) {
	cases := []struct {
		input                     string
		device, property, element string
		wantErr                   bool
	}{
		{input: "Mount", device: "Mount"},
		{input: "Mount/EQUATORIAL_COORDINATES", device: "Mount", property: "EQUATORIAL_COORDINATES"},
		{input: "Mount/EQUATORIAL_COORDINATES/RA", device: "Mount", property: "EQUATORIAL_COORDINATES", element: "RA"},
		{input: "a/b/c/d", wantErr: true},
		{input: "/prop", wantErr: true},
	}

	for _, tc := range cases {
		device, property, element, err := splitPath(tc.input)
		if tc.wantErr {
			if err == nil {
				t.Errorf("splitPath(%q): expected error", tc.input)
			}
			continue
		}
		if err != nil {
			t.Errorf("splitPath(%q): %v", tc.input, err)
			continue
		}
		if device != tc.device || property != tc.property || element != tc.element {
			t.Errorf("splitPath(%q) = (%q, %q, %q), want (%q, %q, %q)",
				tc.input, device, property, element, tc.device, tc.property, tc.element)
		}
	}
}

func TestParseValue(t *testing.T) {
	prop := model.NewProperty("SETTINGS", model.KindNumber, model.Metadata{Perm: model.PermReadWrite})
	if err := prop.AddElement(model.NewElement("EXPOSURE", "", model.Number{Value: 1})); err != nil {
		t.Fatal(err)
	}

	sw := model.NewProperty("COOLER", model.KindSwitch, model.Metadata{Perm: model.PermReadWrite})
	if err := sw.AddElement(model.NewElement("ON", "", model.Switch{})); err != nil {
		t.Fatal(err)
	}

	if got := parseValue(prop, "EXPOSURE", "2.5"); got != 2.5 {
		t.Errorf("number parse = %v (%T)", got, got)
	}
	if got := parseValue(sw, "ON", "on"); got != true {
		t.Errorf("switch parse = %v (%T)", got, got)
	}
	if got := parseValue(sw, "ON", "off"); got != false {
		t.Errorf("switch parse = %v (%T)", got, got)
	}
	// Unknown elements pass the raw string through.
	if got := parseValue(prop, "GAIN", "12"); got != "12" {
		t.Errorf("unknown element = %v (%T)", got, got)
	}
}
