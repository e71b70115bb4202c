package catalog

import (
	"encoding/xml"
	"html"
	"strings"
)

// Field is one child element of a <Game>. Markup fields hold raw inner XML
// that is written back byte for byte.
type Field struct {
	Name   string
	Value  string
	Markup bool
	Attrs  []xml.Attr
}

// Game is a LaunchBox <Game> entry treated as a value. Methods never modify
// the receiver's backing slice.
type Game struct {
	Fields []Field
}

// NewGame returns an entry carrying only an ID.
func NewGame(id string) Game {
	return Game{}.With(FieldID, id)
}

// ID returns the entry's identifier.
func (g Game) ID() string {
	return strings.TrimSpace(g.Get(FieldID))
}

// Lookup returns the text of the first element called name.
func (g Game) Lookup(name string) (string, bool) {
	for _, f := range g.Fields {
		if f.Name == name {
			if f.Markup {
				return "", true
			}
			return f.Value, true
		}
	}
	return "", false
}

// Get returns the text of name, or "" when absent.
func (g Game) Get(name string) string {
	value, _ := g.Lookup(name)
	return value
}

// With returns a copy of g whose first name element holds value. The element
// is appended when g has none.
func (g Game) With(name, value string) Game {
	out := g.Clone()
	for idx := range out.Fields {
		if out.Fields[idx].Name == name {
			out.Fields[idx] = Field{Name: name, Value: value}
			return out
		}
	}
	out.Fields = append(out.Fields, Field{Name: name, Value: value})
	return out
}

// Clone returns a deep copy.
func (g Game) Clone() Game {
	if g.Fields == nil {
		return Game{}
	}
	fields := make([]Field, len(g.Fields))
	for idx, f := range g.Fields {
		if f.Attrs != nil {
			f.Attrs = append([]xml.Attr(nil), f.Attrs...)
		}
		fields[idx] = f
	}
	return Game{Fields: fields}
}

type rawInner struct {
	Inner string `xml:",innerxml"`
}

// UnmarshalXML keeps every child element in order.
func (g *Game) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	var fields []Field
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			var child rawInner
			if err := d.DecodeElement(&child, &t); err != nil {
				return err
			}
			field := Field{Name: t.Name.Local}
			if len(t.Attr) > 0 {
				field.Attrs = append([]xml.Attr(nil), t.Attr...)
			}
			if strings.Contains(child.Inner, "<") {
				field.Value = child.Inner
				field.Markup = true
			} else {
				field.Value = html.UnescapeString(child.Inner)
			}
			fields = append(fields, field)
		case xml.EndElement:
			g.Fields = fields
			return nil
		}
	}
}

// MarshalXML writes the children in their stored order.
func (g Game) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	start.Attr = nil
	if err := e.EncodeToken(start); err != nil {
		return err
	}
	for _, f := range g.Fields {
		el := xml.StartElement{Name: xml.Name{Local: f.Name}, Attr: f.Attrs}
		var err error
		if f.Markup {
			err = e.EncodeElement(rawInner{Inner: f.Value}, el)
		} else {
			err = e.EncodeElement(f.Value, el)
		}
		if err != nil {
			return err
		}
	}
	return e.EncodeToken(start.End())
}

// CustomField is a LaunchBox <CustomField>, unique by (GameID, Name).
type CustomField struct {
	GameID string `xml:"GameID"`
	Name   string `xml:"Name"`
	Value  string `xml:"Value"`
}

// Element is a top-level element kept verbatim.
type Element struct {
	XMLName xml.Name
	Attrs   []xml.Attr `xml:",any,attr"`
	Inner   string     `xml:",innerxml"`
}

// Document is a parsed platform file.
type Document struct {
	XMLName      xml.Name      `xml:"LaunchBox"`
	Games        []Game        `xml:"Game"`
	CustomFields []CustomField `xml:"CustomField"`
	Extra        []Element     `xml:",any"`
}

// FindGame returns the entry whose ID matches id.
func (d *Document) FindGame(id string) (Game, bool) {
	idx := d.gameIndex(id)
	if idx < 0 {
		return Game{}, false
	}
	return d.Games[idx].Clone(), true
}

// PutGame replaces the entry with the same ID or appends g. It reports
// whether g was appended.
func (d *Document) PutGame(g Game) bool {
	if idx := d.gameIndex(g.ID()); idx >= 0 {
		d.Games[idx] = g.Clone()
		return false
	}
	d.Games = append(d.Games, g.Clone())
	return true
}

func (d *Document) gameIndex(id string) int {
	id = strings.TrimSpace(id)
	if id == "" {
		return -1
	}
	for idx, g := range d.Games {
		if strings.EqualFold(g.ID(), id) {
			return idx
		}
	}
	return -1
}

// CustomField returns the value stored for (gameID, name).
func (d *Document) CustomField(gameID, name string) (string, bool) {
	for _, cf := range d.CustomFields {
		if sameCustomField(cf, gameID, name) {
			return cf.Value, true
		}
	}
	return "", false
}

// UpsertCustomField sets (gameID, name) to value, updating the first match in
// place and dropping any later duplicates. It reports whether the document
// changed.
func (d *Document) UpsertCustomField(gameID, name, value string) bool {
	changed := false
	found := false
	kept := d.CustomFields[:0]
	for _, cf := range d.CustomFields {
		if !sameCustomField(cf, gameID, name) {
			kept = append(kept, cf)
			continue
		}
		if found {
			changed = true
			continue
		}
		found = true
		if cf.Value != value {
			cf.Value = value
			changed = true
		}
		kept = append(kept, cf)
	}
	d.CustomFields = kept
	if !found {
		d.CustomFields = append(d.CustomFields, CustomField{GameID: gameID, Name: name, Value: value})
		changed = true
	}
	return changed
}

func sameCustomField(cf CustomField, gameID, name string) bool {
	return strings.EqualFold(strings.TrimSpace(cf.GameID), strings.TrimSpace(gameID)) && cf.Name == name
}
