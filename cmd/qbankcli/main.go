// A small terminal client for reviewing flashcards against a running qbank
// server. Expects QBANK_URI and QBANK_JWT in the environment.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

type card struct {
	ID           int64     `json:"id"`
	Front        string    `json:"front"`
	Back         string    `json:"back"`
	NextReviewAt time.Time `json:"next_review_at"`
}

type dueResponse struct {
	Cards []card `json:"cards"`
}

type reviewResponse struct {
	Updated      bool      `json:"updated"`
	IntervalDays int       `json:"interval_days"`
	NextReviewAt time.Time `json:"next_review_at"`
}

type client struct {
	uri string
	jwt string
}

func (c *client) do(method, path string, body any, out any) error {
	var rdr io.Reader
	if body != nil {
		bts, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rdr = bytes.NewReader(bts)
	}
	req, err := http.NewRequest(method, c.uri+path, rdr)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.jwt)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		bts, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(bts)))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

type dueMsg []card
type ratedMsg reviewResponse
type errMsg struct{ err error }

func fetchDueCmd(c *client) tea.Cmd {
	return func() tea.Msg {
		var res dueResponse
		if err := c.do(http.MethodGet, "/api/flashcards/due?limit=50", nil, &res); err != nil {
			return errMsg{err}
		}
		return dueMsg(res.Cards)
	}
}

func rateCmd(c *client, cardID int64, quality string) tea.Cmd {
	return func() tea.Msg {
		var res reviewResponse
		body := map[string]string{"quality": quality}
		path := fmt.Sprintf("/api/flashcards/%d/review", cardID)
		if err := c.do(http.MethodPost, path, body, &res); err != nil {
			return errMsg{err}
		}
		return ratedMsg(res)
	}
}

var keyQualities = map[string]string{
	"1": "again",
	"2": "hard",
	"3": "good",
	"4": "easy",
}

type model struct {
	client   *client
	spinner  spinner.Model
	cards    []card
	idx      int
	flipped  bool
	loading  bool
	lastNote string
	errText  string
}

func initialModel(c *client) model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return model{client: c, spinner: sp, loading: true}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, fetchDueCmd(m.client))
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "f", " ":
			m.flipped = !m.flipped
			return m, nil
		case "r":
			m.loading = true
			m.cards = nil
			m.idx = 0
			return m, fetchDueCmd(m.client)
		case "1", "2", "3", "4":
			if m.idx < len(m.cards) && !m.loading {
				m.loading = true
				return m, rateCmd(m.client, m.cards[m.idx].ID, keyQualities[msg.String()])
			}
		}

	case dueMsg:
		m.loading = false
		m.cards = msg
		m.idx = 0
		m.flipped = false
		m.errText = ""
		return m, nil

	case ratedMsg:
		m.loading = false
		if msg.Updated {
			m.lastNote = fmt.Sprintf("next review in %d day(s)", msg.IntervalDays)
		} else {
			m.lastNote = "card vanished; skipping"
		}
		m.idx++
		m.flipped = false
		return m, nil

	case errMsg:
		m.loading = false
		m.errText = msg.err.Error()
		return m, nil
	}

	var cmd tea.Cmd
	m.spinner, cmd = m.spinner.Update(msg)
	return m, cmd
}

func (m model) View() string {
	var b strings.Builder
	b.WriteString("qbank flashcards\n\n")
	if m.errText != "" {
		b.WriteString("error: " + m.errText + "\n\n")
	}
	switch {
	case m.loading:
		b.WriteString(m.spinner.View() + " working...\n")
	case m.idx >= len(m.cards):
		b.WriteString("No cards due. Press (r) to refetch or (q) to quit.\n")
	default:
		c := m.cards[m.idx]
		b.WriteString(fmt.Sprintf("card %d of %d\n\n", m.idx+1, len(m.cards)))
		b.WriteString(strings.Repeat("-", 20) + "\n\n")
		b.WriteString("  " + c.Front + "\n\n")
		if m.flipped {
			b.WriteString("  " + c.Back + "\n\n")
		}
		b.WriteString(strings.Repeat("-", 20) + "\n")
		b.WriteString("(1) Again  (2) Hard  (3) Good  (4) Easy    (F) Flip  (Q) Quit\n")
	}
	if m.lastNote != "" {
		b.WriteString("\n" + m.lastNote + "\n")
	}
	return b.String()
}

func main() {
	uri := os.Getenv("QBANK_URI")
	if uri == "" {
		uri = "http://localhost:8190"
	}
	jwt := os.Getenv("QBANK_JWT")
	if jwt == "" {
		fmt.Println("QBANK_JWT must be set")
		os.Exit(1)
	}
	p := tea.NewProgram(initialModel(&client{uri: uri, jwt: jwt}))
	if _, err := p.Run(); err != nil {
		fmt.Printf("Alas, there's been an error: %v", err)
		os.Exit(1)
	}
}
