package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"
)

const listPage1 = `<html><body>
<p class="resultTotalPages">1 / 5</p>
<ul>
<li><a href="/tw/card-search/detail/101/">a</a></li>
<li><a href="/tw/card-search/detail/102/">b</a></li>
<li><a href="/tw/card-search/detail/101/">a again</a></li>
</ul>
</body></html>`

func TestExtractCardIDs(t *testing.T) {
	cfg, err := siteFor(Taiwanese, "")
	if err != nil {
		t.Fatal(err)
	}
	ids := extractCardIDs(cfg, listPage1)
	want := []int{101, 102}
	if len(ids) != len(want) {
		t.Fatalf("ids = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("ids[%d] = %d, want %d", i, ids[i], want[i])
		}
	}
}

func TestExtractTotalPages(t *testing.T) {
	if got := extractTotalPages(listPage1); got != 5 {
		t.Errorf("total pages = %d, want 5", got)
	}

	// Fallback: no result header, only pagination anchors.
	const fallback = `<html><body><nav class="pagination">
	<a href="?pageNo=2">2</a><a href="?pageNo=7">7</a><a href="?pageNo=3">3</a>
	</nav></body></html>`
	if got := extractTotalPages(fallback); got != 7 {
		t.Errorf("fallback total pages = %d, want 7", got)
	}

	if got := extractTotalPages("<html><body></body></html>"); got != 0 {
		t.Errorf("empty page total = %d, want 0", got)
	}
}

// listStub serves a search result of totalPages pages. Pages after the first
// answer with staggered delays so parallel fetches complete out of page order.
func listStub(t *testing.T, pageIDs map[int][]int, totalPages int) *httptest.Server {
	t.Helper()
	page := func(n int) string {
		body := ""
		if n == 1 {
			body += fmt.Sprintf(`<p class="resultTotalPages">1 / %d</p>`, totalPages)
		}
		for _, id := range pageIDs[n] {
			body += fmt.Sprintf(`<a href="/tw/card-search/detail/%d/">x</a>`, id)
		}
		return "<html><body>" + body + "</body></html>"
	}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			fmt.Fprint(w, page(1))
			return
		}
		n, _ := strconv.Atoi(r.URL.Query().Get("pageNo"))
		if n < 1 {
			http.NotFound(w, r)
			return
		}
		// Later pages respond faster, so completion order inverts page order.
		time.Sleep(time.Duration(totalPages-n) * 10 * time.Millisecond)
		fmt.Fprint(w, page(n))
	}))
}

func TestDiscoverParallelOrdering(t *testing.T) {
	pageIDs := map[int][]int{
		1: {101, 102},
		2: {103, 102},
		3: {104},
		4: {105, 101},
		5: {106},
	}
	srv := listStub(t, pageIDs, 5)
	defer srv.Close()

	cfg, err := siteFor(Taiwanese, srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	ids, totalPages, err := discoverCardIDs(context.Background(), cfg, NewRateLimiter(0), discoverOptions{
		params:      SearchParams{},
		startPage:   1,
		listWorkers: 4,
		session:     sessionOptions{timeout: 5 * time.Second, retries: 1},
	})
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if totalPages != 5 {
		t.Errorf("total pages = %d, want 5", totalPages)
	}
	want := []int{101, 102, 103, 104, 105, 106}
	if len(ids) != len(want) {
		t.Fatalf("ids = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("ids[%d] = %d, want %d (page order must win over completion order)", i, ids[i], want[i])
		}
	}
}

func TestDiscoverSinglePage(t *testing.T) {
	pageIDs := map[int][]int{1: {11, 12}}
	srv := listStub(t, pageIDs, 1)
	defer srv.Close()

	cfg, err := siteFor(Taiwanese, srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	ids, _, err := discoverCardIDs(context.Background(), cfg, NewRateLimiter(0), discoverOptions{
		listWorkers: 1,
		session:     sessionOptions{timeout: 5 * time.Second, retries: 1},
	})
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if len(ids) != 2 || ids[0] != 11 || ids[1] != 12 {
		t.Errorf("ids = %v, want [11 12]", ids)
	}
}
