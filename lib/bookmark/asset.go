// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bookmark

// Record type names used by the whiteboard document model.
const (
	TypeName = "asset"
	Type     = "bookmark"
)

// Asset is a bookmark record in the whiteboard document.
type Asset struct {
	ID       string         `json:"id"`
	TypeName string         `json:"typeName"`
	Type     string         `json:"type"`
	Meta     map[string]any `json:"meta"`
	Props    Props          `json:"props"`
}

// Props holds the bookmark's target and preview metadata. Descriptive
// fields are empty until enrichment supplies them.
type Props struct {
	Src         string `json:"src"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Image       string `json:"image"`
	Favicon     string `json:"favicon"`
}

// Metadata is the worker's unfurl response. Every field is optional.
type Metadata struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Image       string `json:"image,omitempty"`
	Favicon     string `json:"favicon,omitempty"`
}

// Enriched reports whether any descriptive field is populated.
func (p Props) Enriched() bool {
	return p.Title != "" || p.Description != "" || p.Image != "" || p.Favicon != ""
}

// Upgrade copies every non-empty field of update into p. A populated
// field is never reset to empty, so applying a sparser update (for
// example the skeleton of a later, failed unfurl) cannot lose data.
// Src is identity and is left untouched.
func (p *Props) Upgrade(update Props) {
	upgradeField(&p.Title, update.Title)
	upgradeField(&p.Description, update.Description)
	upgradeField(&p.Image, update.Image)
	upgradeField(&p.Favicon, update.Favicon)
}

func upgradeField(field *string, value string) {
	if value != "" {
		*field = value
	}
}

// Apply copies the non-empty fields of an unfurl response into p.
func (p *Props) Apply(metadata Metadata) {
	p.Upgrade(Props{
		Title:       metadata.Title,
		Description: metadata.Description,
		Image:       metadata.Image,
		Favicon:     metadata.Favicon,
	})
}
