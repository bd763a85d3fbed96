package config

// PathMap is an ordered source to target mapping used for force-include,
// shared-data, shared-scripts and extra-metadata style options. Re-setting an
// existing source keeps its original position while the value of the last
// declaration wins.
type PathMap struct {
	keys   []string
	values map[string]string
}

func NewPathMap() *PathMap {
	return &PathMap{values: map[string]string{}}
}

func (m *PathMap) Set(source, target string) {
	if _, ok := m.values[source]; !ok {
		m.keys = append(m.keys, source)
	}
	m.values[source] = target
}

func (m *PathMap) Get(source string) (string, bool) {
	v, ok := m.values[source]
	return v, ok
}

func (m *PathMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Items yields the entries in insertion order.
func (m *PathMap) Items(yield func(source, target string) bool) {
	if m == nil {
		return
	}
	for _, k := range m.keys {
		if !yield(k, m.values[k]) {
			return
		}
	}
}

// Update copies every entry of other into m, other winning on shared sources.
func (m *PathMap) Update(other *PathMap) {
	other.Items(func(source, target string) bool {
		m.Set(source, target)
		return true
	})
}

func (m *PathMap) Clone() *PathMap {
	clone := NewPathMap()
	clone.Update(m)
	return clone
}
