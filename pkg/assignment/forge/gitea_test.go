package forge

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"code.gitea.io/sdk/gitea"

	"github.com/tvandinther/assignment-manager/pkg/assignment"
)

func newGiteaTestServer(t *testing.T, mux *http.ServeMux) *Gitea {
	t.Helper()

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client, err := gitea.NewClient(server.URL, gitea.SetToken("token"), gitea.SetGiteaVersion(""))
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	return NewGiteaWithClient(client, "course", "labs")
}

func TestGiteaListPullRequestsCoversEveryState(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/repos/course/labs/pulls", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("state"); got != "all" {
			t.Errorf("expected state=all, got %q", got)
		}
		writeJSON(t, w, http.StatusOK, []map[string]any{
			{"number": 1, "state": "open", "head": map[string]string{"ref": "assignment-1"}},
			{"number": 2, "state": "closed", "merged": true, "head": map[string]string{"ref": "assignment-2"}},
			{"number": 3, "state": "closed", "head": map[string]string{"ref": "assignment-3"}},
		})
	})
	forge := newGiteaTestServer(t, mux)

	pullRequests, err := forge.ListPullRequests(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := map[string]assignment.PullRequestState{
		"assignment-1": assignment.StateOpen,
		"assignment-2": assignment.StateMerged,
		"assignment-3": assignment.StateClosed,
	}
	if len(pullRequests) != len(expected) {
		t.Fatalf("expected %d pull requests, got %d", len(expected), len(pullRequests))
	}
	for branch, state := range expected {
		if pullRequests[branch] != state {
			t.Errorf("expected %s to be %s, got %s", branch, state, pullRequests[branch])
		}
	}
}

func TestGiteaListBranches(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/repos/course/labs/branches", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, []map[string]string{{"name": "main"}, {"name": "lab-1"}})
	})
	forge := newGiteaTestServer(t, mux)

	branches, err := forge.ListBranches(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(branches) != 2 || !branches["main"] || !branches["lab-1"] {
		t.Errorf("expected main and lab-1, got %v", branches)
	}
}

func TestGiteaReadAndWriteFile(t *testing.T) {
	var created map[string]any
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/repos/course/labs/contents/lab-1/README.md", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusNotFound, map[string]string{"message": "not found"})
	})
	mux.HandleFunc("POST /api/v1/repos/course/labs/contents/lab-1/README.md", func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&created); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		writeJSON(t, w, http.StatusCreated, map[string]any{})
	})
	forge := newGiteaTestServer(t, mux)

	_, found, err := forge.ReadFile(context.Background(), "lab-1", "lab-1/README.md")
	if err != nil {
		t.Fatalf("expected a missing file to not be an error, got %v", err)
	}
	if found {
		t.Fatal("expected file to be reported as missing")
	}

	if err := forge.WriteFile(context.Background(), "lab-1", "lab-1/README.md", []byte("# Lab-1\n"), "Add README"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if created["branch"] != "lab-1" {
		t.Errorf("expected branch lab-1, got %v", created["branch"])
	}
	if created["content"] != base64.StdEncoding.EncodeToString([]byte("# Lab-1\n")) {
		t.Errorf("expected base64 content, got %v", created["content"])
	}
}

func TestGiteaReadFileDecodesContent(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/repos/course/labs/contents/lab-1/README.md", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, map[string]any{
			"type":    "file",
			"sha":     "abc",
			"content": base64.StdEncoding.EncodeToString([]byte("existing\n")),
		})
	})
	forge := newGiteaTestServer(t, mux)

	content, found, err := forge.ReadFile(context.Background(), "lab-1", "lab-1/README.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !found || string(content) != "existing\n" {
		t.Errorf("expected existing content, got found=%v content=%q", found, content)
	}
}

func TestGiteaCreatePullRequest(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/repos/course/labs/pulls", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusCreated, map[string]any{"number": 9})
	})
	forge := newGiteaTestServer(t, mux)

	id, err := forge.CreatePullRequest(context.Background(), assignment.NewPullRequest{
		Title: "Assignment: Lab-1",
		Head:  "lab-1",
		Base:  "main",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "#9" {
		t.Errorf("expected #9, got %q", id)
	}
}

func TestGiteaCreateBranch(t *testing.T) {
	var option gitea.CreateBranchOption
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/repos/course/labs/branches", func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&option); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		writeJSON(t, w, http.StatusCreated, map[string]string{"name": option.BranchName})
	})
	forge := newGiteaTestServer(t, mux)

	if err := forge.CreateBranch(context.Background(), "lab-1", "main"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if option.BranchName != "lab-1" || option.OldBranchName != "main" {
		t.Errorf("expected lab-1 from main, got %s from %s", option.BranchName, option.OldBranchName)
	}
}

func TestGiteaCreateBranchRequiresCreated(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/repos/course/labs/branches", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, map[string]string{"name": "lab-1"})
	})
	forge := newGiteaTestServer(t, mux)

	if err := forge.CreateBranch(context.Background(), "lab-1", "main"); err == nil {
		t.Error("expected error without 201 CREATED, got nil")
	}
}

func TestGiteaCommitsAhead(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/repos/course/labs/compare/main...lab-1", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, map[string]any{"total_commits": 3})
	})
	forge := newGiteaTestServer(t, mux)

	ahead, err := forge.CommitsAhead(context.Background(), "main", "lab-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ahead != 3 {
		t.Errorf("expected 3 commits ahead, got %d", ahead)
	}
}
