package rest

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
)

const pcmFeed = `<feed xmlns="http://www.w3.org/2005/Atom">
  <entry>
    <id>pcm-entry</id>
    <content type="application/xml">
      <ManagedSystemPcmPreference>
        <SystemName>p9-sys</SystemName>
        <EnergyMonitoringCapable>true</EnergyMonitoringCapable>
        <AggregationEnabled>false</AggregationEnabled>
        <LongTermMonitorEnabled>true</LongTermMonitorEnabled>
        <ShortTermMonitorEnabled>false</ShortTermMonitorEnabled>
        <ComputeLTMEnabled>false</ComputeLTMEnabled>
        <EnergyMonitorEnabled>false</EnergyMonitorEnabled>
      </ManagedSystemPcmPreference>
    </content>
  </entry>
</feed>`

func TestGetPCMPreferences(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/preferences") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		io.WriteString(w, pcmFeed)
	}))
	prefs, err := c.GetPCMPreferences(context.Background(), "uuid-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !prefs.Enabled("ltm") {
		t.Error("ltm should be enabled")
	}
	if prefs.Enabled("am") || prefs.Enabled("em") {
		t.Error("am and em should be disabled")
	}
	if prefs.SystemName != "p9-sys" {
		t.Errorf("system name = %q", prefs.SystemName)
	}
}

func TestUpdatePCMPreferencesRewritesToggles(t *testing.T) {
	var posted string
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			io.WriteString(w, pcmFeed)
			return
		}
		data, _ := io.ReadAll(r.Body)
		posted = string(data)
		w.WriteHeader(http.StatusOK)
	}))

	prefs, err := c.GetPCMPreferences(context.Background(), "uuid-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	prefs.AggregationEnabled = "true"
	prefs.EnergyMonitorEnabled = "true"
	if err := c.UpdatePCMPreferences(context.Background(), "uuid-1", prefs); err != nil {
		t.Fatalf("update: %v", err)
	}
	if !strings.Contains(posted, "<AggregationEnabled>true</AggregationEnabled>") {
		t.Errorf("aggregation toggle not rewritten: %s", posted)
	}
	if !strings.Contains(posted, "<EnergyMonitorEnabled>true</EnergyMonitorEnabled>") {
		t.Errorf("energy toggle not rewritten: %s", posted)
	}
	// Fields we do not model round-trip unchanged.
	if !strings.Contains(posted, "<EnergyMonitoringCapable>true</EnergyMonitoringCapable>") {
		t.Errorf("capability field lost: %s", posted)
	}
}

func TestReplaceElementMissingTagIsNoop(t *testing.T) {
	doc := []byte("<A><B>x</B></A>")
	out := replaceElement(doc, "C", "y")
	if string(out) != string(doc) {
		t.Errorf("doc changed: %s", out)
	}
}
