package rest

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"net/url"
	"strings"

	"github.com/openlpar/hmcctl/pkg/hmc"
)

// SystemDocument is the managed system's full REST document: the extracted
// fields the engine consumes plus the raw XML for callers that need more.
type SystemDocument struct {
	UUID          string
	DetailedState string
	Raw           []byte
}

// atom feed envelope of search responses.
type feed struct {
	XMLName xml.Name    `xml:"feed"`
	Entries []feedEntry `xml:"entry"`
}

type feedEntry struct {
	ID      string   `xml:"id"`
	Content rawInner `xml:"content"`
}

// rawInner captures the entry content subtree verbatim.
type rawInner struct {
	Inner []byte `xml:",innerxml"`
}

type managedSystemXML struct {
	XMLName       xml.Name `xml:"ManagedSystem"`
	DetailedState string   `xml:"DetailedState"`
}

// LookupManagedSystem resolves a managed system name to its REST identifier
// and document. A missing system is a NotFoundError.
func (c *Client) LookupManagedSystem(ctx context.Context, name string) (string, *SystemDocument, error) {
	path := "/rest/api/uom/ManagedSystem/search/(SystemName==" + url.PathEscape(fmt.Sprintf("'%s'", name)) + ")"
	data, err := c.get(ctx, path, "application/atom+xml")
	if err != nil {
		return "", nil, err
	}
	if len(data) == 0 {
		return "", nil, &hmc.NotFoundError{Kind: "managed system", Name: name}
	}

	var f feed
	if err := xml.Unmarshal(data, &f); err != nil {
		return "", nil, &hmc.ConsoleError{Op: "managed system lookup", Err: err}
	}
	if len(f.Entries) == 0 {
		return "", nil, &hmc.NotFoundError{Kind: "managed system", Name: name}
	}

	entry := f.Entries[0]
	uuid := entry.ID
	// Entry ids come back as full hrefs on some console levels.
	if i := strings.LastIndexByte(uuid, '/'); i >= 0 {
		uuid = uuid[i+1:]
	}

	var ms managedSystemXML
	if err := xml.Unmarshal(entry.Content.Inner, &ms); err != nil {
		return "", nil, &hmc.ConsoleError{Op: "managed system lookup", Err: err}
	}
	return uuid, &SystemDocument{
		UUID:          uuid,
		DetailedState: ms.DetailedState,
		Raw:           entry.Content.Inner,
	}, nil
}

// ManagedSystemQuick fetches the system's quick property view as structured
// data.
func (c *Client) ManagedSystemQuick(ctx context.Context, uuid string) (map[string]any, error) {
	data, err := c.get(ctx, "/rest/api/uom/ManagedSystem/"+uuid+"/quick/All", "application/json")
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, &hmc.NotFoundError{Kind: "managed system", Name: uuid}
	}
	var props map[string]any
	if err := json.Unmarshal(data, &props); err != nil {
		return nil, &hmc.ConsoleError{Op: "managed system quick", Err: err}
	}
	return props, nil
}
