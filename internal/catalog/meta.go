package catalog

// Origin records where a dataset's underlying data came from.
type Origin struct {
	Producer      string `json:"producer,omitempty"`
	Title         string `json:"title,omitempty"`
	URL           string `json:"url,omitempty"`
	DatePublished string `json:"date_published,omitempty"`
}

// License records the terms the upstream data was published under.
type License struct {
	Name string `json:"name,omitempty"`
	URL  string `json:"url,omitempty"`
}

// DatasetMeta is the metadata shared by all tables of a dataset. Origins and
// licenses are propagated from upstream datasets and snapshots so provenance
// survives every pipeline stage.
type DatasetMeta struct {
	Title       string    `json:"title,omitempty"`
	Description string    `json:"description,omitempty"`
	Origins     []Origin  `json:"origins,omitempty"`
	Licenses    []License `json:"licenses,omitempty"`
}

// ColumnMeta carries the per-column metadata surfaced alongside the data.
type ColumnMeta struct {
	Title       string `json:"title,omitempty"`
	Unit        string `json:"unit,omitempty"`
	ShortUnit   string `json:"short_unit,omitempty"`
	Description string `json:"description,omitempty"`
}

// MergeOrigins appends origins from another metadata set, dropping exact
// duplicates. Used when a step combines several upstream inputs.
func (m *DatasetMeta) MergeOrigins(other DatasetMeta) {
	for _, o := range other.Origins {
		if !containsOrigin(m.Origins, o) {
			m.Origins = append(m.Origins, o)
		}
	}
	for _, l := range other.Licenses {
		if !containsLicense(m.Licenses, l) {
			m.Licenses = append(m.Licenses, l)
		}
	}
}

func containsOrigin(origins []Origin, o Origin) bool {
	for _, existing := range origins {
		if existing == o {
			return true
		}
	}
	return false
}

func containsLicense(licenses []License, l License) bool {
	for _, existing := range licenses {
		if existing == l {
			return true
		}
	}
	return false
}
