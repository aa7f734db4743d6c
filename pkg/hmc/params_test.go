package hmc

import "testing"

func TestDesiredAttributes(t *testing.T) {
	params := ParameterSet{
		ParamAction:         string(ActionModifySysConfig),
		ParamHost:           "hmc01",
		ParamAuth:           map[string]string{"username": "hscroot"},
		ParamSystemName:     "sys1",
		ParamNewName:        "sys1-renamed",
		ParamPowerOffPolicy: 1,
		ParamHugePages:      nil,
		"ratio":             1.5,
		"enabled":           true,
	}

	got := DesiredAttributes(params)
	want := map[string]string{
		ParamNewName:        "sys1-renamed",
		ParamPowerOffPolicy: "1",
		"ratio":             "1.5",
		"enabled":           "true",
	}
	if len(got) != len(want) {
		t.Fatalf("DesiredAttributes() = %v, want %v", got, want)
	}
	for key, val := range want {
		if got[key] != val {
			t.Errorf("attribute %q = %q, want %q", key, got[key], val)
		}
	}
}

func TestFlattenList(t *testing.T) {
	if got := FlattenList([]string{"a.iso", "b.bff"}); got != "a.iso,b.bff" {
		t.Errorf("FlattenList() = %q", got)
	}
	if got := FlattenList(nil); got != "" {
		t.Errorf("FlattenList(nil) = %q, want empty", got)
	}
}

func TestNFSMountOption(t *testing.T) {
	if got := NFSMountOption("4"); got != `"ver=4"` {
		t.Errorf("NFSMountOption(4) = %s", got)
	}
	if got := NFSMountOption(""); got != "" {
		t.Errorf("NFSMountOption of empty = %q", got)
	}
}

func TestIsMTMS(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"9009-42A*1234567", true},
		{"8286-41A*21AFFFF", true},
		{"Server-9009-42A-SN1234567", false},
		{"sys1", false},
		{"9009-42A*12345", false},
	}
	for _, tt := range tests {
		if got := IsMTMS(tt.in); got != tt.want {
			t.Errorf("IsMTMS(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParameterSetHas(t *testing.T) {
	p := ParameterSet{
		"str":   "",
		"list":  []string{},
		"nil":   nil,
		"zero":  0,
		"false": false,
		"ok":    "x",
	}
	for name, want := range map[string]bool{
		"str": false, "list": false, "nil": false, "absent": false,
		"zero": true, "false": true, "ok": true,
	} {
		if got := p.Has(name); got != want {
			t.Errorf("Has(%q) = %v, want %v", name, got, want)
		}
	}
}
