package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"
)

// DomainErrorsSuite tests the domain error primitives.
//
// These are used at every trust boundary: "wrapped domain errors preserve the
// original code" is what keeps storage faults distinguishable from lookup misses.
type DomainErrorsSuite struct {
	suite.Suite
}

func TestDomainErrorsSuite(t *testing.T) {
	suite.Run(t, new(DomainErrorsSuite))
}

func (s *DomainErrorsSuite) TestErrorInterface() {
	s.Run("returns message when present", func() {
		err := &Error{Code: CodeNotFound, Message: "graduate not found"}
		s.Equal("graduate not found", err.Error())
	})

	s.Run("returns code when message is empty", func() {
		err := &Error{Code: CodeMalformedKey}
		s.Equal("malformed_key", err.Error())
	})
}

func (s *DomainErrorsSuite) TestIsMatching() {
	s.Run("matches by code only", func() {
		err1 := &Error{Code: CodeNotFound, Message: "record not found"}
		err2 := &Error{Code: CodeNotFound, Message: "key not found"}
		s.True(err1.Is(err2))
	})

	s.Run("does not match different codes", func() {
		err1 := &Error{Code: CodeNotFound}
		err2 := &Error{Code: CodeStorageUnavailable}
		s.False(err1.Is(err2))
	})

	s.Run("works with errors.Is through chain", func() {
		inner := &Error{Code: CodeUnknownAuthorityReference, Message: "original"}
		wrapped := fmt.Errorf("register: %w", inner)
		s.True(errors.Is(wrapped, &Error{Code: CodeUnknownAuthorityReference}))
	})
}

func (s *DomainErrorsSuite) TestWrap() {
	s.Run("preserves original domain code when wrapping domain error", func() {
		original := New(CodeNotFound, "record not found")
		wrapped := Wrap(original, CodeInternal, "service layer error")

		var domainErr *Error
		s.Require().True(errors.As(wrapped, &domainErr))
		s.Equal(CodeNotFound, domainErr.Code)
		s.Equal("service layer error", domainErr.Message)
	})

	s.Run("uses provided code when wrapping non-domain error", func() {
		original := errors.New("connection refused")
		wrapped := Wrap(original, CodeStorageUnavailable, "registry lookup failed")

		s.True(HasCode(wrapped, CodeStorageUnavailable))
		s.True(errors.Is(wrapped, original))
	})
}

func (s *DomainErrorsSuite) TestStorage() {
	s.Run("nil stays nil", func() {
		s.NoError(Storage(nil, "ignored"))
	})

	s.Run("plain backend error becomes storage_unavailable", func() {
		err := Storage(errors.New("i/o timeout"), "append graduate record")
		s.True(HasCode(err, CodeStorageUnavailable))
		s.Equal("append graduate record", err.Error())
	})

	s.Run("domain code survives", func() {
		err := Storage(New(CodeNotFound, "missing"), "lookup")
		s.True(HasCode(err, CodeNotFound))
	})
}

func (s *DomainErrorsSuite) TestHasCodeAndCodeOf() {
	s.True(HasCode(New(CodeMalformedKey, "bad pem"), CodeMalformedKey))
	s.False(HasCode(errors.New("plain"), CodeMalformedKey))
	s.False(HasCode(nil, CodeNotFound))

	s.Equal(CodeAuthorityNotRegistered, CodeOf(New(CodeAuthorityNotRegistered, "none")))
	s.Equal(CodeInternal, CodeOf(errors.New("plain")))
}
