package catalog

// Merge returns existing updated with the store-owned values of incoming.
// Fields in frontendOwned, and any element the store does not own, keep the
// existing value. An empty incoming value never replaces a non-empty one.
// Neither argument is modified.
func Merge(existing, incoming Game, frontendOwned FieldSet) Game {
	out := existing.Clone()
	for _, f := range incoming.Fields {
		if f.Markup || frontendOwned.Has(f.Name) || !storeOwnedSet.Has(f.Name) {
			continue
		}
		if f.Value == "" && out.Get(f.Name) != "" {
			continue
		}
		if current, ok := out.Lookup(f.Name); ok && current == f.Value {
			continue
		}
		out = out.With(f.Name, f.Value)
	}
	return out
}

// NewEntry builds a fresh entry from the store-owned fields of incoming,
// followed by the default value of every frontend-owned field.
func NewEntry(incoming Game) Game {
	var out Game
	for _, f := range incoming.Fields {
		if f.Markup || !storeOwnedSet.Has(f.Name) {
			continue
		}
		out = out.With(f.Name, f.Value)
	}
	for _, def := range frontendDefaults {
		if _, ok := out.Lookup(def.Name); ok {
			continue
		}
		out.Fields = append(out.Fields, def)
	}
	return out
}
