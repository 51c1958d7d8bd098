// Package parser extracts flashcards from markdown files.
//
// A card starts at a line beginning with "Q:" and may carry an "A:" answer and a
// "C:" context block. Each block runs until the next prefix, a "---" separator
// or the end of the file, so answers can span several lines.
package parser

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/conorfennell/recall/internal/domain"
)

const (
	frontPrefix   = "Q:"
	backPrefix    = "A:"
	contextPrefix = "C:"
	separator     = "---"
)

type state int

const (
	seeking state = iota
	readingFront
	readingBack
	readingContext
)

// ParseFile reads a file from the given path and extracts all cards.
func ParseFile(path string) ([]domain.Card, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return Parse(file)
}

// Parse reads from an io.Reader and extracts all cards. Only Front, Back and
// Context are populated; identity and scheduling are assigned by the caller.
func Parse(r io.Reader) ([]domain.Card, error) {
	p := &cardParser{}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		p.line(scanner.Text())
	}
	p.finishCard()

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return p.cards, nil
}

type cardParser struct {
	cards   []domain.Card
	current domain.Card
	block   []string
	state   state
}

func (p *cardParser) line(line string) {
	if strings.TrimRight(line, " \t") == separator {
		p.finishCard()
		return
	}

	next, rest, ok := prefixed(line)
	if !ok {
		if p.state != seeking {
			p.block = append(p.block, line)
		}
		return
	}

	p.flushBlock()
	if next == readingFront && p.state != seeking {
		// A new question always starts a new card.
		p.finishCard()
	}
	p.state = next
	p.block = append(p.block, rest)
}

func prefixed(line string) (state, string, bool) {
	for _, pf := range []struct {
		prefix string
		state  state
	}{
		{frontPrefix, readingFront},
		{backPrefix, readingBack},
		{contextPrefix, readingContext},
	} {
		if rest, ok := strings.CutPrefix(line, pf.prefix); ok {
			return pf.state, strings.TrimPrefix(rest, " "), true
		}
	}
	return seeking, "", false
}

func (p *cardParser) flushBlock() {
	if len(p.block) == 0 {
		return
	}
	content := strings.TrimRight(strings.Join(p.block, "\n"), "\n \t")
	switch p.state {
	case readingFront:
		p.current.Front = content
	case readingBack:
		p.current.Back = content
	case readingContext:
		p.current.Context = content
	}
	p.block = nil
}

func (p *cardParser) finishCard() {
	p.flushBlock()
	if p.current.Front != "" {
		p.cards = append(p.cards, p.current)
	}
	p.current = domain.Card{}
	p.state = seeking
}
