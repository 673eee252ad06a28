package core

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// errTruncated marks a scan that ran out of input.
var errTruncated = errors.New("unexpected end of input")

// scanError is a token-level failure; io is set when the input ended or
// could not be read, as opposed to holding the wrong token.
type scanError struct {
	offset int64
	io     bool
	msg    string
	cause  error
}

func (e *scanError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("offset %d: %s: %v", e.offset, e.msg, e.cause)
	}
	return fmt.Sprintf("offset %d: %s", e.offset, e.msg)
}

func (e *scanError) Unwrap() error { return e.cause }

// isIOScanError reports whether err came from the input running out.
func isIOScanError(err error) bool {
	var se *scanError
	return errors.As(err, &se) && se.io
}

// scanner tokenizes the whitespace and punctuation delimited text used by
// plotfile headers. It tracks the number of bytes consumed so binary
// payloads that follow a textual prefix can be located.
type scanner struct {
	r   *bufio.Reader
	off int64
}

func newScanner(r io.Reader) *scanner {
	return &scanner{r: bufio.NewReader(r)}
}

func (s *scanner) fail(msg string, args ...interface{}) error {
	return &scanError{offset: s.off, msg: fmt.Sprintf(msg, args...)}
}

func (s *scanner) readByte() (byte, error) {
	c, err := s.r.ReadByte()
	if err != nil {
		if err == io.EOF {
			err = errTruncated
		}
		return 0, &scanError{offset: s.off, io: true, msg: "read", cause: err}
	}
	s.off++
	return c, nil
}

func (s *scanner) unreadByte() {
	_ = s.r.UnreadByte()
	s.off--
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\v' || c == '\f'
}

func isPunct(c byte) bool {
	return c == '(' || c == ')' || c == ','
}

func (s *scanner) skipSpace() error {
	for {
		c, err := s.readByte()
		if err != nil {
			return err
		}
		if !isSpace(c) {
			s.unreadByte()
			return nil
		}
	}
}

// peek returns the next non-space byte without consuming it.
func (s *scanner) peek() (byte, error) {
	if err := s.skipSpace(); err != nil {
		return 0, err
	}
	c, err := s.readByte()
	if err != nil {
		return 0, err
	}
	s.unreadByte()
	return c, nil
}

// expect consumes the next non-space byte, which must be c.
func (s *scanner) expect(c byte) error {
	if err := s.skipSpace(); err != nil {
		return err
	}
	got, err := s.readByte()
	if err != nil {
		return err
	}
	if got != c {
		s.unreadByte()
		return s.fail("expected %q, found %q", c, got)
	}
	return nil
}

// optional consumes c if it is the next non-space byte.
func (s *scanner) optional(c byte) (bool, error) {
	next, err := s.peek()
	if err != nil {
		return false, err
	}
	if next != c {
		return false, nil
	}
	_, err = s.readByte()
	return true, err
}

// field reads a whitespace-delimited token.
func (s *scanner) field() (string, error) {
	return s.token(isSpace)
}

// word reads a token delimited by whitespace or punctuation.
func (s *scanner) word() (string, error) {
	return s.token(func(c byte) bool { return isSpace(c) || isPunct(c) })
}

func (s *scanner) token(stop func(byte) bool) (string, error) {
	if err := s.skipSpace(); err != nil {
		return "", err
	}
	var b strings.Builder
	for {
		c, err := s.readByte()
		if err != nil {
			if isIOScanError(err) && b.Len() > 0 {
				return b.String(), nil
			}
			return "", err
		}
		if stop(c) {
			s.unreadByte()
			break
		}
		b.WriteByte(c)
	}
	if b.Len() == 0 {
		return "", s.fail("empty token")
	}
	return b.String(), nil
}

func (s *scanner) int() (int, error) {
	w, err := s.word()
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(w)
	if err != nil {
		return 0, s.fail("integer %q", w)
	}
	return v, nil
}

func (s *scanner) float() (float64, error) {
	w, err := s.word()
	if err != nil {
		return 0, err
	}
	// Fortran writers use D for the exponent.
	v, err := strconv.ParseFloat(strings.NewReplacer("D", "e", "d", "e").Replace(w), 64)
	if err != nil {
		return 0, s.fail("real %q", w)
	}
	return v, nil
}

func (s *scanner) ints(n int) ([]int, error) {
	out := make([]int, n)
	for i := range out {
		v, err := s.int()
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (s *scanner) floats(n int) ([]float64, error) {
	out := make([]float64, n)
	for i := range out {
		v, err := s.float()
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// tuple reads a parenthesized, comma-separated integer list: (a,b,c).
func (s *scanner) tuple() ([]int, error) {
	if err := s.expect('('); err != nil {
		return nil, err
	}
	var out []int
	for {
		v, err := s.int()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
		next, err := s.peek()
		if err != nil {
			return nil, err
		}
		if next == ')' {
			break
		}
		if err := s.expect(','); err != nil {
			return nil, err
		}
	}
	return out, s.expect(')')
}

// boxTriple reads ((lo) (hi) (type)) and checks the arity against dim when
// dim > 0.
func (s *scanner) boxTriple(dim int) (lo, hi, typ []int, err error) {
	if err = s.expect('('); err != nil {
		return
	}
	if lo, err = s.tuple(); err != nil {
		return
	}
	if hi, err = s.tuple(); err != nil {
		return
	}
	if typ, err = s.tuple(); err != nil {
		return
	}
	if err = s.expect(')'); err != nil {
		return
	}
	if len(lo) != len(hi) || len(lo) != len(typ) || (dim > 0 && len(lo) != dim) {
		err = s.fail("box arity %d/%d/%d, want %d", len(lo), len(hi), len(typ), dim)
	}
	return
}
