// Package inventory implements the system inventory (C11): the
// startup snapshot of host identity, network, storage, and profile
// information serialised as the archive's first entry, per spec.md
// 4.11.
package inventory

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"time"
)

// NetworkAdapter is one entry of Document.NetworkAdapters.
type NetworkAdapter struct {
	Name        string   `xml:"Name" json:"name"`
	Description string   `xml:"Description" json:"description"`
	MAC         string   `xml:"MAC" json:"mac"`
	Addresses   []string `xml:"Addresses>Address" json:"addresses"`
	DNS         []string `xml:"DNS>Server" json:"dns"`
}

// PhysicalDrive is one entry of Document.PhysicalDrives.
type PhysicalDrive struct {
	Path         string `xml:"Path" json:"path"`
	Serial       string `xml:"Serial" json:"serial"`
	SizeBytes    int64  `xml:"SizeBytes" json:"sizeBytes"`
	Type         string `xml:"Type" json:"type"`
	Availability string `xml:"Availability" json:"availability"`
}

// Profile is one entry of Document.Profiles, a local user profile as
// enumerated from the profile list.
type Profile struct {
	SID        string     `xml:"SID" json:"sid"`
	User       string     `xml:"User" json:"user"`
	Domain     string     `xml:"Domain" json:"domain"`
	Path       string     `xml:"Path" json:"path"`
	LoadTime   *time.Time `xml:"LoadTime,omitempty" json:"loadTime,omitempty"`
	UnloadTime *time.Time `xml:"UnloadTime,omitempty" json:"unloadTime,omitempty"`
}

// Document is the full structured snapshot spec.md 4.11 describes,
// serialised into the archive as its first entry, SystemIdentity.xml
// or SystemIdentity.json depending on the configured archive format.
type Document struct {
	Hostname     string `xml:"Hostname" json:"hostname"`
	FullHostname string `xml:"FullHostname" json:"fullHostname"`
	OSDescription string `xml:"OSDescription" json:"osDescription"`
	OSVersion    string `xml:"OSVersion" json:"osVersion"`
	Timezone     string `xml:"Timezone" json:"timezone"`
	Locale       string `xml:"Locale" json:"locale"`
	Language     string `xml:"Language" json:"language"`
	Tags         []string `xml:"Tags>Tag" json:"tags"`
	QFEList      []string `xml:"QFEList>QFE" json:"qfeList"`
	Architecture string `xml:"Architecture" json:"architecture"`
	WOW64        bool   `xml:"WOW64" json:"wow64"`
	CurrentUser  string `xml:"CurrentUser" json:"currentUser"`
	UserSID      string `xml:"UserSID" json:"userSid"`
	Elevated     bool   `xml:"Elevated" json:"elevated"`
	CommandLine  string `xml:"CommandLine" json:"commandLine"`
	Environment  map[string]string `xml:"-" json:"environment"`

	NetworkAdapters []NetworkAdapter `xml:"NetworkAdapters>Adapter" json:"networkAdapters"`
	PhysicalDrives  []PhysicalDrive  `xml:"PhysicalDrives>Drive" json:"physicalDrives"`
	Profiles        []Profile        `xml:"Profiles>Profile" json:"profiles"`
}

type envVar struct {
	Key   string `xml:"Key,attr"`
	Value string `xml:",chardata"`
}

// MarshalJSON serialises the document as SystemIdentity.json.
func (d *Document) MarshalJSON() ([]byte, error) {
	type alias Document
	return json.MarshalIndent((*alias)(d), "", "  ")
}

// xmlDocument is Document's on-the-wire XML shape: encoding/xml cannot
// marshal the Environment map directly, so ToXML projects it into
// envVar pairs first.
type xmlDocument struct {
	XMLName xml.Name `xml:"SystemIdentity"`

	Hostname      string   `xml:"Hostname"`
	FullHostname  string   `xml:"FullHostname"`
	OSDescription string   `xml:"OSDescription"`
	OSVersion     string   `xml:"OSVersion"`
	Timezone      string   `xml:"Timezone"`
	Locale        string   `xml:"Locale"`
	Language      string   `xml:"Language"`
	Tags          []string `xml:"Tags>Tag"`
	QFEList       []string `xml:"QFEList>QFE"`
	Architecture  string   `xml:"Architecture"`
	WOW64         bool     `xml:"WOW64"`
	CurrentUser   string   `xml:"CurrentUser"`
	UserSID       string   `xml:"UserSID"`
	Elevated      bool     `xml:"Elevated"`
	CommandLine   string   `xml:"CommandLine"`
	Environment   []envVar `xml:"Environment>Var"`

	NetworkAdapters []NetworkAdapter `xml:"NetworkAdapters>Adapter"`
	PhysicalDrives  []PhysicalDrive  `xml:"PhysicalDrives>Drive"`
	Profiles        []Profile        `xml:"Profiles>Profile"`
}

// ToXML renders the document as SystemIdentity.xml, the default
// archive-preamble format per spec.md 4.11.
func (d *Document) ToXML() ([]byte, error) {
	vars := make([]envVar, 0, len(d.Environment))
	for k, v := range d.Environment {
		vars = append(vars, envVar{Key: k, Value: v})
	}
	wire := xmlDocument{
		Hostname:        d.Hostname,
		FullHostname:    d.FullHostname,
		OSDescription:   d.OSDescription,
		OSVersion:       d.OSVersion,
		Timezone:        d.Timezone,
		Locale:          d.Locale,
		Language:        d.Language,
		Tags:            d.Tags,
		QFEList:         d.QFEList,
		Architecture:    d.Architecture,
		WOW64:           d.WOW64,
		CurrentUser:     d.CurrentUser,
		UserSID:         d.UserSID,
		Elevated:        d.Elevated,
		CommandLine:     d.CommandLine,
		Environment:     vars,
		NetworkAdapters: d.NetworkAdapters,
		PhysicalDrives:  d.PhysicalDrives,
		Profiles:        d.Profiles,
	}
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(wire); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ToJSON renders the document as SystemIdentity.json.
func (d *Document) ToJSON() ([]byte, error) {
	return d.MarshalJSON()
}
