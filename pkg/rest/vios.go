package rest

import (
	"context"
	"encoding/json"
	"encoding/xml"

	"github.com/openlpar/hmcctl/pkg/hmc"
)

// ViosDocument is the subset of the VIOS partition document the facts path
// reports.
type ViosDocument struct {
	XMLName xml.Name `xml:"VirtualIOServer"`

	MinimumMemory string `xml:"PartitionMemoryConfiguration>MinimumMemory"`
	MaximumMemory string `xml:"PartitionMemoryConfiguration>MaximumMemory"`

	HasDedicatedProcessors   string `xml:"PartitionProcessorConfiguration>CurrentHasDedicatedProcessors"`
	MinimumProcessingUnits   string `xml:"PartitionProcessorConfiguration>SharedProcessorConfiguration>MinimumProcessingUnits"`
	MaximumProcessingUnits   string `xml:"PartitionProcessorConfiguration>SharedProcessorConfiguration>MaximumProcessingUnits"`
	MinimumVirtualProcessors string `xml:"PartitionProcessorConfiguration>SharedProcessorConfiguration>MinimumVirtualProcessors"`
	MaximumVirtualProcessors string `xml:"PartitionProcessorConfiguration>SharedProcessorConfiguration>MaximumVirtualProcessors"`
	MinimumProcessors        string `xml:"PartitionProcessorConfiguration>DedicatedProcessorConfiguration>MinimumProcessors"`
	MaximumProcessors        string `xml:"PartitionProcessorConfiguration>DedicatedProcessorConfiguration>MaximumProcessors"`

	OpticalMedia []VirtualOpticalMedia `xml:"MediaRepositories>VirtualMediaRepository>OpticalMedia>VirtualOpticalMedia"`
}

// VirtualOpticalMedia is one mounted or loadable media image on a VIOS media
// repository.
type VirtualOpticalMedia struct {
	MediaName string `xml:"MediaName"`
	MediaUDID string `xml:"MediaUDID"`
	MountType string `xml:"MountType"`
	Size      string `xml:"Size"`
}

// PhysicalVolume is one physical volume attached to a VIOS.
type PhysicalVolume struct {
	VolumeName             string `xml:"VolumeName"`
	VolumeCapacity         string `xml:"VolumeCapacity"`
	VolumeState            string `xml:"VolumeState"`
	VolumeUniqueID         string `xml:"VolumeUniqueID"`
	ReservePolicy          string `xml:"ReservePolicy"`
	ReservePolicyAlgorithm string `xml:"ReservePolicyAlgorithm"`
	AvailableForUsage      string `xml:"AvailableForUsage"`
}

type viosStorageXML struct {
	XMLName         xml.Name         `xml:"VirtualIOServer"`
	PhysicalVolumes []PhysicalVolume `xml:"PhysicalVolumes>PhysicalVolume"`
}

// ListViosQuick fetches the quick property view of every VIOS partition on
// the managed system.
func (c *Client) ListViosQuick(ctx context.Context, systemUUID string) ([]map[string]any, error) {
	data, err := c.get(ctx, "/rest/api/uom/ManagedSystem/"+systemUUID+"/VirtualIOServer/quick/All", "application/json")
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}
	var list []map[string]any
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, &hmc.ConsoleError{Op: "vios quick list", Err: err}
	}
	return list, nil
}

// GetVios fetches the full VIOS partition document.
func (c *Client) GetVios(ctx context.Context, viosUUID string) (*ViosDocument, error) {
	data, err := c.get(ctx, "/rest/api/uom/VirtualIOServer/"+viosUUID, uomContentType)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, &hmc.NotFoundError{Kind: "vios", Name: viosUUID}
	}
	var doc ViosDocument
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, &hmc.ConsoleError{Op: "vios document", Err: err}
	}
	return &doc, nil
}

// FreePhysicalVolumes lists the VIOS physical volumes not yet assigned to
// any consumer.
func (c *Client) FreePhysicalVolumes(ctx context.Context, viosUUID string) ([]PhysicalVolume, error) {
	data, err := c.get(ctx, "/rest/api/uom/VirtualIOServer/"+viosUUID+"?group=ViosStorage", uomContentType)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}
	var storage viosStorageXML
	if err := xml.Unmarshal(data, &storage); err != nil {
		return nil, &hmc.ConsoleError{Op: "vios storage", Err: err}
	}
	var free []PhysicalVolume
	for _, pv := range storage.PhysicalVolumes {
		if pv.AvailableForUsage == "true" {
			free = append(free, pv)
		}
	}
	return free, nil
}
