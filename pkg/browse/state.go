package browse

import (
	"github.com/Sternrassler/pokedex-browser/pkg/catalog"
)

// NoticeKind distinguishes the messages shown in place of results.
type NoticeKind string

const (
	// NoticeError is a page-level fetch failure.
	NoticeError NoticeKind = "error"

	// NoticeInstruction tells the visitor what to do first.
	NoticeInstruction NoticeKind = "instruction"
)

// Notice is a message shown in place of results.
type Notice struct {
	Kind NoticeKind `json:"kind"`
	Text string     `json:"text"`
}

// State is the pagination/search state of one browsing session.
// The caller owns it; the controller only mutates what it is handed.
type State struct {
	CurrentPage int    `json:"current_page"`
	IsSearching bool   `json:"is_searching"`
	Query       string `json:"query"`

	// CurrentItems are the entries on display.
	CurrentItems []catalog.Entry `json:"current_items"`

	// Accumulated grows with every browse-mode page load and is the search
	// corpus. It is append-only: nothing is removed or deduplicated.
	Accumulated []catalog.Entry `json:"accumulated"`

	// Failed disables both controls until a load succeeds.
	Failed bool    `json:"failed"`
	Notice *Notice `json:"notice,omitempty"`
}

// NewState returns the state of a fresh session on page 1 in browse mode.
func NewState() *State {
	return &State{CurrentPage: 1}
}

// Clone returns a deep copy of s.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	c := *s
	c.CurrentItems = append([]catalog.Entry(nil), s.CurrentItems...)
	c.Accumulated = append([]catalog.Entry(nil), s.Accumulated...)
	if s.Notice != nil {
		n := *s.Notice
		c.Notice = &n
	}
	return &c
}

// View is what the renderer and the JSON API show for a state.
type View struct {
	Entries      []catalog.Entry `json:"entries"`
	Page         int             `json:"page"`
	Query        string          `json:"query"`
	Searching    bool            `json:"searching"`
	PrevDisabled bool            `json:"prev_disabled"`
	NextDisabled bool            `json:"next_disabled"`
	Notice       *Notice         `json:"notice,omitempty"`
	// Matches is the size of the filtered set in search mode.
	Matches int `json:"matches,omitempty"`
	// Corpus is the number of accumulated entries.
	Corpus int `json:"corpus"`
}

// Empty reports whether the view has no entries and nothing else to say.
func (v View) Empty() bool {
	return len(v.Entries) == 0 && v.Notice == nil
}
