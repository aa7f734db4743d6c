package rest

import (
	"bytes"
	"context"
	"encoding/xml"

	"github.com/openlpar/hmcctl/pkg/hmc"
)

const pcmContentType = "application/vnd.ibm.powervm.pcm+xml; type=ManagedSystemPcmPreference"

// PCMPreferences are the performance data collection toggles of a managed
// system. LTM, STM and CLTM feed the aggregated metric, EM is independent.
type PCMPreferences struct {
	XMLName xml.Name `xml:"ManagedSystemPcmPreference"`

	SystemName                string `xml:"SystemName"`
	AggregationEnabled        string `xml:"AggregationEnabled"`
	LongTermMonitorEnabled    string `xml:"LongTermMonitorEnabled"`
	ShortTermMonitorEnabled   string `xml:"ShortTermMonitorEnabled"`
	ComputeLTMEnabled         string `xml:"ComputeLTMEnabled"`
	EnergyMonitorEnabled      string `xml:"EnergyMonitorEnabled"`
	EnergyMonitoringCapable   string `xml:"EnergyMonitoringCapable"`
	MachineTypeModelSerialNum string `xml:"MachineTypeModelSerialNumber,omitempty"`

	raw []byte
}

// Enabled reports whether the named metric group is on. Group names follow
// the HMC preference fields: ltm, stm, am, cltm, em.
func (p *PCMPreferences) Enabled(group string) bool {
	switch group {
	case "ltm":
		return p.LongTermMonitorEnabled == "true"
	case "stm":
		return p.ShortTermMonitorEnabled == "true"
	case "am":
		return p.AggregationEnabled == "true"
	case "cltm":
		return p.ComputeLTMEnabled == "true"
	case "em":
		return p.EnergyMonitorEnabled == "true"
	}
	return false
}

func pcmPath(systemUUID string) string {
	return "/rest/api/pcm/ManagedSystem/" + systemUUID + "/preferences"
}

// GetPCMPreferences reads the current collection preferences of a managed
// system.
func (c *Client) GetPCMPreferences(ctx context.Context, systemUUID string) (*PCMPreferences, error) {
	data, err := c.get(ctx, pcmPath(systemUUID), pcmContentType)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, &hmc.NotFoundError{Kind: "managed system", Name: systemUUID}
	}
	prefs, err := parsePCMFeed(data)
	if err != nil {
		return nil, &hmc.ConsoleError{Op: "pcm preferences", Err: err}
	}
	return prefs, nil
}

// UpdatePCMPreferences writes the preference document back. The HMC expects
// the full entry content from the previous read with the toggles rewritten,
// so callers must pass a value obtained from GetPCMPreferences.
func (c *Client) UpdatePCMPreferences(ctx context.Context, systemUUID string, prefs *PCMPreferences) error {
	body, err := rewritePCMEntry(prefs)
	if err != nil {
		return &hmc.ConsoleError{Op: "pcm preferences", Err: err}
	}
	_, err = c.do(ctx, "POST", pcmPath(systemUUID), pcmContentType, body)
	return err
}

// The preferences endpoint wraps the document in an atom feed. Parse keeps
// the raw entry content so updates can round-trip fields we do not model.
func parsePCMFeed(data []byte) (*PCMPreferences, error) {
	var f feed
	if err := xml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	content := data
	if len(f.Entries) > 0 && len(f.Entries[0].Content.Inner) > 0 {
		content = f.Entries[0].Content.Inner
	}
	var prefs PCMPreferences
	if err := xml.Unmarshal(content, &prefs); err != nil {
		return nil, err
	}
	prefs.raw = content
	return &prefs, nil
}

func rewritePCMEntry(prefs *PCMPreferences) ([]byte, error) {
	if len(prefs.raw) == 0 {
		return xml.Marshal(prefs)
	}
	doc := prefs.raw
	for tag, value := range map[string]string{
		"AggregationEnabled":      prefs.AggregationEnabled,
		"LongTermMonitorEnabled":  prefs.LongTermMonitorEnabled,
		"ShortTermMonitorEnabled": prefs.ShortTermMonitorEnabled,
		"ComputeLTMEnabled":       prefs.ComputeLTMEnabled,
		"EnergyMonitorEnabled":    prefs.EnergyMonitorEnabled,
	} {
		doc = replaceElement(doc, tag, value)
	}
	return doc, nil
}

// replaceElement swaps the text of the first <tag>...</tag> occurrence,
// leaving attributes on the opening tag intact.
func replaceElement(doc []byte, tag, value string) []byte {
	open := []byte("<" + tag)
	start := bytes.Index(doc, open)
	if start < 0 {
		return doc
	}
	gt := bytes.IndexByte(doc[start:], '>')
	if gt < 0 {
		return doc
	}
	textStart := start + gt + 1
	closeTag := []byte("</" + tag + ">")
	end := bytes.Index(doc[textStart:], closeTag)
	if end < 0 {
		return doc
	}
	var out bytes.Buffer
	out.Write(doc[:textStart])
	out.WriteString(value)
	out.Write(doc[textStart+end:])
	return out.Bytes()
}
