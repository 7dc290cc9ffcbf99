package model

import (
	"errors"
	"testing"
)

func TestBlockRefValidate(t *testing.T) {
	valid := BlockRef{
		RepoOwner: "o",
		RepoName:  "r",
		Ref:       "main",
		Path:      "a.py",
		StartLine: 1,
		EndLine:   5,
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("unexpected error for valid ref: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(b *BlockRef)
	}{
		{"missing owner", func(b *BlockRef) { b.RepoOwner = "" }},
		{"missing repo", func(b *BlockRef) { b.RepoName = "" }},
		{"missing ref", func(b *BlockRef) { b.Ref = "" }},
		{"missing path", func(b *BlockRef) { b.Path = "" }},
		{"zero start line", func(b *BlockRef) { b.StartLine = 0 }},
		{"negative start line", func(b *BlockRef) { b.StartLine = -3 }},
		{"end before start", func(b *BlockRef) { b.StartLine = 5; b.EndLine = 2 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ref := valid
			tc.mutate(&ref)
			err := ref.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !errors.Is(err, ErrInvalidSubject) {
				t.Errorf("expected ErrInvalidSubject, got %v", err)
			}
		})
	}
}

func TestBlockRefString(t *testing.T) {
	ref := BlockRef{RepoOwner: "o", RepoName: "r", Ref: "main", Path: "a.py", StartLine: 1, EndLine: 5}
	want := "o/r@main:a.py#1-5"
	if got := ref.String(); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}
