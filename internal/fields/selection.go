package fields

// Selection is an ordered set of field ids chosen by the user.
type Selection struct {
	ids []string
}

// NewSelection builds a selection from ids, dropping duplicates and blanks.
func NewSelection(ids ...string) *Selection {
	s := &Selection{}
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// IDs returns a copy of the selected ids in selection order.
func (s *Selection) IDs() []string {
	return append([]string(nil), s.ids...)
}

// Len returns the number of selected ids.
func (s *Selection) Len() int {
	return len(s.ids)
}

// Has reports whether id is selected.
func (s *Selection) Has(id string) bool {
	for _, v := range s.ids {
		if v == id {
			return true
		}
	}
	return false
}

// Add appends id unless it is blank or already selected.
func (s *Selection) Add(id string) {
	if id == "" || s.Has(id) {
		return
	}
	s.ids = append(s.ids, id)
}

// Remove drops id from the selection.
func (s *Selection) Remove(id string) {
	out := s.ids[:0]
	for _, v := range s.ids {
		if v != id {
			out = append(out, v)
		}
	}
	s.ids = out
}

// Toggle adds id when checked and removes it otherwise.
func (s *Selection) Toggle(id string, checked bool) {
	if checked {
		s.Add(id)
		return
	}
	s.Remove(id)
}

// SelectAllCodes sets every available non-name field to on.
func (s *Selection) SelectAllCodes(available []Property, on bool) {
	for _, p := range available {
		if !IsName(p.ID) {
			s.Toggle(p.ID, on)
		}
	}
}

// SelectAllNames sets every available name field to on.
func (s *Selection) SelectAllNames(available []Property, on bool) {
	for _, p := range available {
		if IsName(p.ID) {
			s.Toggle(p.ID, on)
		}
	}
}
