package ble

// ServiceData is one service-data entry of an advertisement.
type ServiceData struct {
	UUID string `json:"uuid"`
	Data []byte `json:"data"`
}

// Advertisement is the merged view of the advertising data and scan
// responses seen for one address.
type Advertisement struct {
	LocalName         string        `json:"localName,omitempty"`
	TxPowerLevel      *int8         `json:"txPowerLevel,omitempty"`
	ManufacturerData  []byte        `json:"manufacturerData,omitempty"`
	ServiceUUIDs      []string      `json:"serviceUuids"`
	SolicitationUUIDs []string      `json:"serviceSolicitationUuids"`
	ServiceData       []ServiceData `json:"serviceData"`
}

// NewAdvertisement returns the empty advertisement.
func NewAdvertisement() *Advertisement {
	return &Advertisement{
		ServiceUUIDs:      []string{},
		SolicitationUUIDs: []string{},
		ServiceData:       []ServiceData{},
	}
}

// IsEmpty reports whether no field has been populated.
func (a *Advertisement) IsEmpty() bool {
	return a.LocalName == "" &&
		a.TxPowerLevel == nil &&
		a.ManufacturerData == nil &&
		len(a.ServiceUUIDs) == 0 &&
		len(a.SolicitationUUIDs) == 0 &&
		len(a.ServiceData) == 0
}

// AddServiceUUID appends u unless already present.
func (a *Advertisement) AddServiceUUID(u string) {
	a.ServiceUUIDs = appendUnique(a.ServiceUUIDs, u)
}

// AddSolicitationUUID appends u unless already present.
func (a *Advertisement) AddSolicitationUUID(u string) {
	a.SolicitationUUIDs = appendUnique(a.SolicitationUUIDs, u)
}

// SetServiceData replaces the entry for uuid, or appends a new one.
func (a *Advertisement) SetServiceData(uuid string, data []byte) {
	for i := range a.ServiceData {
		if a.ServiceData[i].UUID == uuid {
			a.ServiceData[i].Data = data
			return
		}
	}
	a.ServiceData = append(a.ServiceData, ServiceData{UUID: uuid, Data: data})
}

// Clone returns a deep copy, safe to hand to another goroutine.
func (a *Advertisement) Clone() *Advertisement {
	c := NewAdvertisement()
	c.LocalName = a.LocalName
	if a.TxPowerLevel != nil {
		v := *a.TxPowerLevel
		c.TxPowerLevel = &v
	}
	if a.ManufacturerData != nil {
		c.ManufacturerData = append([]byte{}, a.ManufacturerData...)
	}
	c.ServiceUUIDs = append(c.ServiceUUIDs, a.ServiceUUIDs...)
	c.SolicitationUUIDs = append(c.SolicitationUUIDs, a.SolicitationUUIDs...)
	for _, sd := range a.ServiceData {
		c.ServiceData = append(c.ServiceData, ServiceData{UUID: sd.UUID, Data: append([]byte{}, sd.Data...)})
	}
	return c
}

func appendUnique(ss []string, s string) []string {
	for _, v := range ss {
		if v == s {
			return ss
		}
	}
	return append(ss, s)
}
