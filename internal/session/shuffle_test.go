package session_test

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/quizdeck/quizdeck-backend/internal/session"
)

func TestShufflePreservesQuestionMultiset(t *testing.T) {
	exam := newExam(50, nil,
		q("Q1", [4]string{"a1", "b1", "c1", "d1"}, "a1", ""),
		q("Q2", [4]string{"a2", "b2", "c2", "d2"}, "b2", ""),
		q("Q3", [4]string{"a3", "b3", "c3", "d3"}, "c3", ""),
		q("Q4", [4]string{"a4", "b4", "c4", "d4"}, "d4", ""),
		q("Q5", [4]string{"a5", "b5", "c5", "d5"}, "a5", ""),
	)

	for seed := int64(0); seed < 20; seed++ {
		sess, err := session.New(exam, session.WithRand(rand.New(rand.NewSource(seed))))
		if err != nil {
			t.Fatalf("New: %v", err)
		}

		views := sess.Questions()
		if len(views) != len(exam.Questions) {
			t.Fatalf("seed %d: question count changed: %d", seed, len(views))
		}

		byText := make(map[string]session.QuestionView, len(views))
		for _, v := range views {
			byText[v.QuestionText] = v
		}

		for _, orig := range exam.Questions {
			shuffled, ok := byText[orig.QuestionText]
			if !ok {
				t.Fatalf("seed %d: question %q lost in shuffle", seed, orig.QuestionText)
			}
			if !sameStringSet(orig.Options, shuffled.Options) {
				t.Fatalf("seed %d: option set changed for %q: %v vs %v",
					seed, orig.QuestionText, orig.Options, shuffled.Options)
			}
			if !contains(shuffled.Options, orig.CorrectAnswer) {
				t.Fatalf("seed %d: correct answer %q missing from shuffled options %v",
					seed, orig.CorrectAnswer, shuffled.Options)
			}
		}
	}
}

func TestShuffleDoesNotMutateOriginalExam(t *testing.T) {
	exam := newExam(50, nil,
		q("Q1", [4]string{"a", "b", "c", "d"}, "a", ""),
		q("Q2", [4]string{"e", "f", "g", "h"}, "e", ""),
	)
	origFirst := exam.Questions[0].QuestionText
	origOptions := append([]string(nil), exam.Questions[0].Options...)

	for seed := int64(0); seed < 10; seed++ {
		if _, err := session.New(exam, session.WithRand(rand.New(rand.NewSource(seed)))); err != nil {
			t.Fatalf("New: %v", err)
		}
	}

	if exam.Questions[0].QuestionText != origFirst {
		t.Fatal("session start reordered the caller's question slice")
	}
	for i, opt := range exam.Questions[0].Options {
		if opt != origOptions[i] {
			t.Fatal("session start reordered the caller's option slice")
		}
	}
}

func TestScoringSurvivesOptionShuffle(t *testing.T) {
	// Whatever permutation the options end up in, answering with the correct
	// text must always score.
	exam := newExam(50, nil,
		q("Q1", [4]string{"alpha", "beta", "gamma", "delta"}, "gamma", ""),
	)

	for seed := int64(0); seed < 20; seed++ {
		sess, err := session.New(exam, session.WithRand(rand.New(rand.NewSource(seed))))
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		if err := sess.SelectAnswer("gamma"); err != nil {
			t.Fatalf("seed %d: select: %v", seed, err)
		}
		if res := sess.Submit(); res.Score != 1 {
			t.Fatalf("seed %d: correct answer scored %d", seed, res.Score)
		}
	}
}

func sameStringSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	as := append([]string(nil), a...)
	bs := append([]string(nil), b...)
	sort.Strings(as)
	sort.Strings(bs)
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}

func contains(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}
