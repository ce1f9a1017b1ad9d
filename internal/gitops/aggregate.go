package gitops

import (
	"fmt"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/oddrun/sidekick/internal/errors"
)

// Commit is one entry in an aggregated branch summary.
type Commit struct {
	Hash    string
	Subject string
	Author  string
}

// Summary describes everything a branch adds on top of its base, in the
// shape a pull-request description wants: subjects, touched files, authors.
type Summary struct {
	Base    string
	Head    string
	Commits []Commit
	Files   []string
	Authors []string
}

// AggregateBranch opens the repository at or above dir and collects the
// commits reachable from head but not from base (the usual base..head range,
// cut at the merge base).
func AggregateBranch(dir, base, head string) (*Summary, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, errors.GitOpenError(dir, err)
	}

	baseCommit, err := resolveCommit(repo, base)
	if err != nil {
		return nil, err
	}
	headCommit, err := resolveCommit(repo, head)
	if err != nil {
		return nil, err
	}

	mergeBases, err := headCommit.MergeBase(baseCommit)
	if err != nil {
		return nil, errors.GitRefError(fmt.Sprintf("%s...%s", base, head), err)
	}
	ignore := make([]plumbing.Hash, 0, len(mergeBases))
	for _, mb := range mergeBases {
		ignore = append(ignore, mb.Hash)
	}

	summary := &Summary{Base: base, Head: head}
	files := make(map[string]struct{})
	authors := make(map[string]struct{})

	iter := object.NewCommitPreorderIter(headCommit, nil, ignore)
	err = iter.ForEach(func(c *object.Commit) error {
		summary.Commits = append(summary.Commits, Commit{
			Hash:    c.Hash.String()[:8],
			Subject: subjectLine(c.Message),
			Author:  c.Author.Name,
		})
		authors[c.Author.Name] = struct{}{}

		// Stats against a merge commit compare it to its first parent
		// only, which double-counts the merged branch. Skip them.
		if c.NumParents() > 1 {
			return nil
		}
		stats, statErr := c.Stats()
		if statErr != nil {
			return statErr
		}
		for _, fs := range stats {
			files[fs.Name] = struct{}{}
		}
		return nil
	})
	if err != nil {
		return nil, errors.GitRefError(fmt.Sprintf("%s..%s", base, head), err)
	}

	summary.Files = sortedKeys(files)
	summary.Authors = sortedKeys(authors)
	return summary, nil
}

func resolveCommit(repo *git.Repository, rev string) (*object.Commit, error) {
	hash, err := repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return nil, errors.GitRefError(rev, err)
	}
	commit, err := repo.CommitObject(*hash)
	if err != nil {
		return nil, errors.GitRefError(hash.String(), err)
	}
	return commit, nil
}

func subjectLine(message string) string {
	subject, _, _ := strings.Cut(message, "\n")
	return strings.TrimSpace(subject)
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Markdown renders the summary as a PR description skeleton.
func (s *Summary) Markdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "## %s..%s (%d commits)\n\n", s.Base, s.Head, len(s.Commits))

	b.WriteString("### Commits\n\n")
	for _, c := range s.Commits {
		fmt.Fprintf(&b, "- %s %s (%s)\n", c.Hash, c.Subject, c.Author)
	}

	if len(s.Files) > 0 {
		b.WriteString("\n### Files touched\n\n")
		for _, f := range s.Files {
			fmt.Fprintf(&b, "- %s\n", f)
		}
	}

	if len(s.Authors) > 0 {
		b.WriteString("\n### Authors\n\n")
		b.WriteString(strings.Join(s.Authors, ", "))
		b.WriteString("\n")
	}
	return b.String()
}
