package snapshot

import (
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/catwalk/internal/catalog"
)

// Origin records where a snapshot's file was obtained from.
type Origin struct {
	Producer      string `hcl:"producer,optional"`
	Title         string `hcl:"title,optional"`
	URL           string `hcl:"url,optional"`
	DatePublished string `hcl:"date_published,optional"`
}

// License records the upstream publication terms.
type License struct {
	Name string `hcl:"name,optional"`
	URL  string `hcl:"url,optional"`
}

// Meta is the provenance sidecar of one snapshot.
type Meta struct {
	Checksum string   `hcl:"checksum"`
	Origin   *Origin  `hcl:"origin,block"`
	License  *License `hcl:"license,block"`
}

// sidecarFile is the top-level structure of a `.meta.hcl` sidecar.
type sidecarFile struct {
	Snapshot *Meta `hcl:"snapshot,block"`
}

// DatasetMeta converts the snapshot's provenance into catalog dataset
// metadata so steps can propagate it into their outputs.
func (m Meta) DatasetMeta() catalog.DatasetMeta {
	var dm catalog.DatasetMeta
	if m.Origin != nil {
		dm.Origins = []catalog.Origin{{
			Producer:      m.Origin.Producer,
			Title:         m.Origin.Title,
			URL:           m.Origin.URL,
			DatePublished: m.Origin.DatePublished,
		}}
		dm.Title = m.Origin.Title
	}
	if m.License != nil {
		dm.Licenses = []catalog.License{{Name: m.License.Name, URL: m.License.URL}}
	}
	return dm
}

// readMeta parses a sidecar file.
func readMeta(path string) (Meta, error) {
	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return Meta{}, fmt.Errorf("parsing sidecar %s: %w", path, diags)
	}

	var sidecar sidecarFile
	if diags := gohcl.DecodeBody(hclFile.Body, nil, &sidecar); diags.HasErrors() {
		return Meta{}, fmt.Errorf("decoding sidecar %s: %w", path, diags)
	}
	if sidecar.Snapshot == nil {
		return Meta{}, fmt.Errorf("sidecar %s: missing snapshot block", path)
	}
	if sidecar.Snapshot.Checksum == "" {
		return Meta{}, fmt.Errorf("sidecar %s: missing checksum", path)
	}
	return *sidecar.Snapshot, nil
}

// writeMeta serializes a sidecar file.
func writeMeta(path string, meta Meta) error {
	f := hclwrite.NewEmptyFile()
	body := f.Body()

	snapBody := body.AppendNewBlock("snapshot", nil).Body()
	snapBody.SetAttributeValue("checksum", cty.StringVal(meta.Checksum))

	if meta.Origin != nil {
		originBody := snapBody.AppendNewBlock("origin", nil).Body()
		setIfPresent(originBody, "producer", meta.Origin.Producer)
		setIfPresent(originBody, "title", meta.Origin.Title)
		setIfPresent(originBody, "url", meta.Origin.URL)
		setIfPresent(originBody, "date_published", meta.Origin.DatePublished)
	}
	if meta.License != nil {
		licenseBody := snapBody.AppendNewBlock("license", nil).Body()
		setIfPresent(licenseBody, "name", meta.License.Name)
		setIfPresent(licenseBody, "url", meta.License.URL)
	}

	if err := os.WriteFile(path, f.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing sidecar %s: %w", path, err)
	}
	return nil
}

func setIfPresent(body *hclwrite.Body, name, value string) {
	if value != "" {
		body.SetAttributeValue(name, cty.StringVal(value))
	}
}
