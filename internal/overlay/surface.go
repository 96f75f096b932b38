package overlay

import "sync"

// Surface is the isolated region a single plugin draws into.
// Plugins write content from any goroutine; the host reads it when rendering.
type Surface struct {
	mu sync.RWMutex

	id    string
	title string
	lines []string
	shown bool

	onChange func(id string)
}

// ID returns the id of the plugin owning the surface.
func (s *Surface) ID() string {
	return s.id
}

// Title returns the panel title.
func (s *Surface) Title() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.title
}

// SetTitle sets the panel title.
func (s *Surface) SetTitle(title string) {
	s.mu.Lock()
	s.title = title
	s.mu.Unlock()
	s.changed()
}

// Lines returns a copy of the surface content.
func (s *Surface) Lines() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.lines...)
}

// SetLines replaces the surface content.
func (s *Surface) SetLines(lines ...string) {
	s.mu.Lock()
	s.lines = append([]string(nil), lines...)
	s.mu.Unlock()
	s.changed()
}

// AppendLine adds a line to the end of the content.
func (s *Surface) AppendLine(line string) {
	s.mu.Lock()
	s.lines = append(s.lines, line)
	s.mu.Unlock()
	s.changed()
}

// Clear removes the title and all content.
func (s *Surface) Clear() {
	s.mu.Lock()
	s.title = ""
	s.lines = nil
	s.mu.Unlock()
	s.changed()
}

// Shown returns true while the owning plugin is active.
func (s *Surface) Shown() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.shown
}

func (s *Surface) setShown(shown bool) {
	s.mu.Lock()
	s.shown = shown
	s.mu.Unlock()
}

func (s *Surface) changed() {
	if s.onChange != nil {
		s.onChange(s.id)
	}
}

// Registry creates and looks up one surface per plugin id.
// Surfaces are created lazily and never recreated or removed.
type Registry struct {
	mu       sync.RWMutex
	surfaces map[string]*Surface
	order    []string

	onChange func(id string)
}

// NewRegistry creates an empty surface registry. onChange, if not nil, is
// called whenever a plugin updates its surface content.
func NewRegistry(onChange func(id string)) *Registry {
	return &Registry{
		surfaces: make(map[string]*Surface),
		onChange: onChange,
	}
}

// Ensure returns the surface for the id, creating it on first call.
func (r *Registry) Ensure(id string) *Surface {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.surfaces[id]; ok {
		return s
	}
	s := &Surface{id: id, onChange: r.onChange}
	r.surfaces[id] = s
	r.order = append(r.order, id)
	return s
}

// Lookup returns the surface for the id, if one exists.
func (r *Registry) Lookup(id string) (*Surface, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.surfaces[id]
	return s, ok
}

// IDs returns the ids of all surfaces in creation order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Len returns the number of surfaces.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
