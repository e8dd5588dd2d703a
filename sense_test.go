package rpmpack

import "testing"

func TestParseRelation(t *testing.T) {
	testCases := []struct {
		input       string
		name        string
		version     string
		sense       sense
		errExpected bool
	}{
		{input: "python >= 3.7", name: "python", version: "3.7", sense: senseGreater | senseEqual},
		{input: "python", name: "python", version: "", sense: senseAny},
		{input: "python=2", name: "python", version: "2", sense: senseEqual},
		{input: "python >=3.5", name: "python", version: "3.5", sense: senseGreater | senseEqual},
		{input: "python >< 3.5", errExpected: true},
		{input: "python <> 3.5", errExpected: true},
		{input: "python == 3.5", errExpected: true},
		{input: "python =< 3.5", errExpected: true},
		{input: "python => 3.5", errExpected: true},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.input, func(t *testing.T) {
			rel, err := parseRelation(tc.input)
			if tc.errExpected {
				if err == nil {
					t.Fatalf("%s should have returned an error", tc.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("%s should not have returned an error: %v", tc.input, err)
			}
			if rel.Name != tc.name || rel.Version != tc.version || rel.Sense != tc.sense {
				t.Errorf("parseRelation(%q) = %+v, want {%q %q %v}", tc.input, rel, tc.name, tc.version, tc.sense)
			}
		})
	}
}

func TestSenseString(t *testing.T) {
	if got := (senseGreater | senseEqual).String(); got != ">=" {
		t.Errorf("String() = %q, want >=", got)
	}
	if got := senseAny.String(); got != "" {
		t.Errorf("String() = %q, want empty", got)
	}
}

func TestRelationTags(t *testing.T) {
	rels, err := parseRelations([]string{"libfoo >= 1.2", "libbar"})
	if err != nil {
		t.Fatalf("parseRelations: %v", err)
	}
	names, versions, flags := relationTags(rels)
	wantNames := []string{"libfoo", "libbar"}
	wantVersions := []string{"1.2", ""}
	wantFlags := []uint32{uint32(senseGreater | senseEqual), uint32(senseAny)}
	for i := range wantNames {
		if names[i] != wantNames[i] || versions[i] != wantVersions[i] || flags[i] != wantFlags[i] {
			t.Errorf("relationTags()[%d] = (%q,%q,%d), want (%q,%q,%d)", i, names[i], versions[i], flags[i], wantNames[i], wantVersions[i], wantFlags[i])
		}
	}
}
