package shelf

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/MrSnakeDoc/shelf/internal/domain"
	"github.com/MrSnakeDoc/shelf/internal/drive"
	"github.com/MrSnakeDoc/shelf/internal/metadata"
	"github.com/MrSnakeDoc/shelf/internal/session"
	"github.com/MrSnakeDoc/shelf/internal/sheet"
	"github.com/MrSnakeDoc/shelf/internal/testutil"
)

type stubFetcher struct {
	md  metadata.Metadata
	err error
}

func (f stubFetcher) Fetch(context.Context, string) (metadata.Metadata, error) {
	return f.md, f.err
}

type fixture struct {
	svc      *Service
	drive    *drive.Memory
	sessions *session.MemoryStore
	clock    *testutil.StubClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := testutil.FixedClock()
	f := &fixture{
		drive:    drive.NewMemory(),
		sessions: session.NewMemoryStore(time.Hour, clock),
		clock:    clock,
	}
	f.svc = New(Options{
		Gate:     domain.NewGate("admin123", "guest456"),
		Sessions: f.sessions,
		Drive:    f.drive,
		Fetcher:  stubFetcher{md: metadata.Metadata{Title: "Fetched", Tags: []string{"a"}}},
		Clock:    clock,
		IDs:      testutil.NewStubIDs(),
	})
	return f
}

func (f *fixture) login(t *testing.T, password, username string) Info {
	t.Helper()
	info, err := f.svc.Login(context.Background(), "", password, username)
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	return info
}

func (f *fixture) save(t *testing.T, id string, in domain.LinkInput) Outcome {
	t.Helper()
	out, err := f.svc.Save(context.Background(), id, in)
	if err != nil {
		t.Fatalf("Save(%q) error = %v", in.URL, err)
	}
	return out
}

func (f *fixture) driveTable(t *testing.T, name string) domain.Table {
	t.Helper()
	data, err := f.drive.Get(context.Background(), name)
	if err != nil {
		t.Fatalf("drive.Get(%s) error = %v", name, err)
	}
	table, err := sheet.Decode(data)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	return table
}

func TestLoginModes(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name       string
		password   string
		username   string
		wantMode   domain.Mode
		wantNotice bool
	}{
		{"owner", "admin123", "", domain.ModeOwner, false},
		{"guest", "guest456", "bob", domain.ModeGuest, false},
		{"wrong password", "nope", "", domain.ModePublic, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := f.login(t, tt.password, tt.username)
			if info.Mode != tt.wantMode {
				t.Errorf("Mode = %q, want %q", info.Mode, tt.wantMode)
			}
			if (info.Notice != "") != tt.wantNotice {
				t.Errorf("Notice = %q, wantNotice %v", info.Notice, tt.wantNotice)
			}
			if info.SessionID == "" {
				t.Error("SessionID is empty")
			}
		})
	}
}

func TestLoginGuestWithoutUsernameKeepsSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.login(t, "admin123", "")

	_, err := f.svc.Login(ctx, owner.SessionID, "guest456", "")
	if !errors.Is(err, domain.ErrUsernameRequired) {
		t.Fatalf("Login() error = %v, want ErrUsernameRequired", err)
	}

	info, err := f.svc.Info(ctx, owner.SessionID)
	if err != nil {
		t.Fatalf("existing session was dropped: %v", err)
	}
	if info.Mode != domain.ModeOwner {
		t.Errorf("Mode = %q, want owner", info.Mode)
	}
	if n, _ := f.sessions.Count(ctx); n != 1 {
		t.Errorf("Count() = %d, want 1 (no new session)", n)
	}
}

func TestLoginReplacesCurrentSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pub, err := f.svc.ContinuePublic(ctx, "")
	if err != nil {
		t.Fatalf("ContinuePublic() error = %v", err)
	}

	owner, err := f.svc.Login(ctx, pub.SessionID, "admin123", "")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if _, err := f.svc.Info(ctx, pub.SessionID); !errors.Is(err, session.ErrNotFound) {
		t.Errorf("old session error = %v, want ErrNotFound", err)
	}
	if owner.SessionID == pub.SessionID {
		t.Error("Login() reused the old session id")
	}
}

func TestOwnerSavePersists(t *testing.T) {
	f := newFixture(t)
	owner := f.login(t, "admin123", "")

	out := f.save(t, owner.SessionID, domain.LinkInput{URL: "https://go.dev", Title: "Go", Tags: []string{"lang"}})
	if out.Action != domain.ActionSaved || !out.Persisted || out.Warning != "" {
		t.Fatalf("Save() = %+v, want saved+persisted", out)
	}
	if !out.Link.CreatedAt.Equal(f.clock.Now()) {
		t.Errorf("CreatedAt = %v, want %v", out.Link.CreatedAt, f.clock.Now())
	}

	f.clock.Advance(time.Minute)
	out = f.save(t, owner.SessionID, domain.LinkInput{URL: "https://go.dev", Title: "Go!", Tags: []string{"lang"}})
	if out.Action != domain.ActionUpdated || out.LinkCount != 1 {
		t.Errorf("second Save() = %+v, want updated with 1 link", out)
	}

	table := f.driveTable(t, "owner_links.xlsx")
	if len(table) != 1 || table[0].Title != "Go!" {
		t.Errorf("drive table = %+v", table)
	}
	if !table[0].UpdatedAt.After(table[0].CreatedAt) {
		t.Errorf("drive updated_at %v not after created_at %v", table[0].UpdatedAt, table[0].CreatedAt)
	}
}

func TestDurableReloadAcrossSessions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.login(t, "guest456", "bob")
	f.save(t, first.SessionID, domain.LinkInput{URL: "https://x.com", Title: "X"})
	if err := f.svc.Exit(ctx, first.SessionID); err != nil {
		t.Fatalf("Exit() error = %v", err)
	}

	again := f.login(t, "guest456", "bob")
	if again.LinkCount != 1 {
		t.Errorf("LinkCount = %d, want 1 loaded from drive", again.LinkCount)
	}

	other := f.login(t, "guest456", "alice")
	if other.LinkCount != 0 {
		t.Errorf("alice LinkCount = %d, want 0 (stores are per username)", other.LinkCount)
	}
}

func TestPublicNeverTouchesDrive(t *testing.T) {
	f := newFixture(t)
	pub, err := f.svc.ContinuePublic(context.Background(), "")
	if err != nil {
		t.Fatalf("ContinuePublic() error = %v", err)
	}

	f.drive.SetFailPut(errors.New("drive must not be written"))
	out := f.save(t, pub.SessionID, domain.LinkInput{URL: "https://x.com", Title: "X"})
	if out.Persisted || out.Warning != "" || out.Notice == "" {
		t.Errorf("Save() = %+v, want not persisted, no warning, temporary notice", out)
	}
}

func TestPersistFailureKeepsWorkingTable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.login(t, "admin123", "")

	f.drive.SetFailPut(errors.New("quota exceeded"))
	out := f.save(t, owner.SessionID, domain.LinkInput{URL: "https://x.com", Title: "X"})
	if out.Persisted || out.Warning == "" {
		t.Fatalf("Save() = %+v, want persisted=false with warning", out)
	}

	links, err := f.svc.Search(ctx, owner.SessionID, "", nil)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(links) != 1 {
		t.Errorf("working table has %d links, want 1", len(links))
	}

	// Export falls back to the working table when the file never got written.
	name, data, err := f.svc.Export(ctx, owner.SessionID)
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if name != "owner_links.xlsx" {
		t.Errorf("Export() name = %q", name)
	}
	table, err := sheet.Decode(data)
	if err != nil || len(table) != 1 {
		t.Errorf("exported %d rows (err %v), want 1", len(table), err)
	}

	// Resync drops the unsaved link.
	info, err := f.svc.Resync(ctx, owner.SessionID)
	if err != nil {
		t.Fatalf("Resync() error = %v", err)
	}
	if info.LinkCount != 0 {
		t.Errorf("LinkCount after resync = %d, want 0", info.LinkCount)
	}
}

func TestSaveReloadSaveKeepsOneRow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.login(t, "admin123", "")
	out := f.save(t, first.SessionID, domain.LinkInput{URL: "https://x.com ", Title: "  X  "})
	if out.Link.URL != "https://x.com" || out.Link.Title != "X" {
		t.Fatalf("Save() link = %+v, want trimmed url and title", out.Link)
	}
	if err := f.svc.Exit(ctx, first.SessionID); err != nil {
		t.Fatalf("Exit() error = %v", err)
	}

	again := f.login(t, "admin123", "")
	out = f.save(t, again.SessionID, domain.LinkInput{URL: "https://x.com ", Title: "X2"})
	if out.Action != domain.ActionUpdated || out.LinkCount != 1 {
		t.Errorf("Save() after reload = %+v, want updated with 1 link", out)
	}
	if err := f.svc.Exit(ctx, again.SessionID); err != nil {
		t.Fatalf("Exit() error = %v", err)
	}

	third := f.login(t, "admin123", "")
	links, err := f.svc.Search(ctx, third.SessionID, "", nil)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(links) != 1 || links[0].URL != "https://x.com" || links[0].Title != "X2" {
		t.Errorf("reloaded links = %+v, want one https://x.com titled X2", links)
	}
}

func TestSaveKeepsLinksImportedWhileSessionOpen(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.login(t, "admin123", "")

	if _, err := f.svc.Import(ctx, domain.Identity{Mode: domain.ModeOwner}, []domain.LinkInput{
		{URL: "https://seed.dev", Title: "Seed"},
	}); err != nil {
		t.Fatalf("Import() error = %v", err)
	}

	out := f.save(t, owner.SessionID, domain.LinkInput{URL: "https://user.dev", Title: "User"})
	if !out.Persisted || out.LinkCount != 2 {
		t.Errorf("Save() = %+v, want persisted with 2 links", out)
	}

	table := f.driveTable(t, "owner_links.xlsx")
	if _, ok := table.Lookup("https://seed.dev"); !ok {
		t.Errorf("drive table lost the imported link: %+v", table)
	}
	if _, ok := table.Lookup("https://user.dev"); !ok {
		t.Errorf("drive table lost the saved link: %+v", table)
	}

	links, err := f.svc.Search(ctx, owner.SessionID, "", nil)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(links) != 2 {
		t.Errorf("working table has %d links, want 2", len(links))
	}
}

func TestUnsyncedChangesAreRetried(t *testing.T) {
	f := newFixture(t)
	owner := f.login(t, "admin123", "")

	f.drive.SetFailPut(errors.New("quota exceeded"))
	f.save(t, owner.SessionID, domain.LinkInput{URL: "https://x.com", Title: "X"})

	f.drive.SetFailPut(nil)
	out := f.save(t, owner.SessionID, domain.LinkInput{URL: "https://y.com", Title: "Y"})
	if !out.Persisted || out.LinkCount != 2 {
		t.Errorf("Save() = %+v, want persisted with 2 links", out)
	}
	if table := f.driveTable(t, "owner_links.xlsx"); len(table) != 2 {
		t.Errorf("drive rows = %d, want 2", len(table))
	}
}

func TestSaveValidationLeavesStateUnchanged(t *testing.T) {
	f := newFixture(t)
	owner := f.login(t, "admin123", "")

	_, err := f.svc.Save(context.Background(), owner.SessionID, domain.LinkInput{URL: "https://x.com"})
	if !domain.IsValidation(err) {
		t.Fatalf("Save() error = %v, want validation error", err)
	}
	if _, err := f.drive.Get(context.Background(), "owner_links.xlsx"); !errors.Is(err, drive.ErrNotFound) {
		t.Errorf("drive was written after a validation error")
	}
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.login(t, "admin123", "")
	f.save(t, owner.SessionID, domain.LinkInput{URL: "https://x.com", Title: "X"})
	f.save(t, owner.SessionID, domain.LinkInput{URL: "https://y.com", Title: "Y"})

	if _, err := f.svc.Delete(ctx, owner.SessionID, nil); !errors.Is(err, domain.ErrNothingSelected) {
		t.Errorf("Delete(nil) error = %v, want ErrNothingSelected", err)
	}

	out, err := f.svc.Delete(ctx, owner.SessionID, []string{"https://x.com", "https://unknown.example"})
	if err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if out.Removed != 1 || !out.Persisted || out.LinkCount != 1 {
		t.Errorf("Delete() = %+v, want 1 removed, persisted, 1 left", out)
	}
	if got := f.driveTable(t, "owner_links.xlsx").URLs(); !reflect.DeepEqual(got, []string{"https://y.com"}) {
		t.Errorf("drive urls = %v", got)
	}
}

func TestSearchAndTags(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pub, _ := f.svc.ContinuePublic(ctx, "")
	f.save(t, pub.SessionID, domain.LinkInput{URL: "https://x.com", Title: "X", Tags: []string{"news"}})
	f.save(t, pub.SessionID, domain.LinkInput{URL: "https://y.com", Title: "Y", Tags: []string{"tool", "cli"}})

	got, err := f.svc.Search(ctx, pub.SessionID, "x", nil)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if !reflect.DeepEqual(got.URLs(), []string{"https://x.com"}) {
		t.Errorf("Search(x) = %v", got.URLs())
	}

	tags, err := f.svc.Tags(ctx, pub.SessionID)
	if err != nil {
		t.Fatalf("Tags() error = %v", err)
	}
	want := []string{"cli", "inspiration", "news", "research", "tool", "tutorial"}
	if !reflect.DeepEqual(tags, want) {
		t.Errorf("Tags() = %v, want %v", tags, want)
	}
}

func TestExportEmptyStore(t *testing.T) {
	f := newFixture(t)
	owner := f.login(t, "admin123", "")
	if _, _, err := f.svc.Export(context.Background(), owner.SessionID); !errors.Is(err, domain.ErrEmptyStore) {
		t.Errorf("Export() error = %v, want ErrEmptyStore", err)
	}
}

func TestExportPublicEncodesWorkingTable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pub, _ := f.svc.ContinuePublic(ctx, "")
	f.save(t, pub.SessionID, domain.LinkInput{URL: "https://x.com", Title: "X"})
	f.save(t, pub.SessionID, domain.LinkInput{URL: "https://y.com", Title: "Y"})

	name, data, err := f.svc.Export(ctx, pub.SessionID)
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if name != "public_links.xlsx" {
		t.Errorf("name = %q, want public_links.xlsx", name)
	}
	table, err := sheet.Decode(data)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if len(table) != 2 {
		t.Errorf("rows = %d, want 2", len(table))
	}
}

func TestUnknownSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Save(ctx, "nope", domain.LinkInput{URL: "https://x.com", Title: "X"}); !errors.Is(err, session.ErrNotFound) {
		t.Errorf("Save() error = %v, want session.ErrNotFound", err)
	}
	if _, _, err := f.svc.Fetch(ctx, "nope", "https://x.com"); !errors.Is(err, session.ErrNotFound) {
		t.Errorf("Fetch() error = %v, want session.ErrNotFound", err)
	}
	if err := f.svc.Exit(ctx, "nope"); err != nil {
		t.Errorf("Exit() of unknown session error = %v, want nil", err)
	}
}

func TestFetchPassesWarning(t *testing.T) {
	f := newFixture(t)
	f.svc.fetcher = stubFetcher{md: metadata.Fallback("https://x.com"), err: errors.New("timeout")}
	pub, _ := f.svc.ContinuePublic(context.Background(), "")

	md, warn, err := f.svc.Fetch(context.Background(), pub.SessionID, "https://x.com")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if warn == nil {
		t.Fatal("Fetch() warning = nil, want timeout")
	}
	if md.Title != "https://x.com" {
		t.Errorf("Title = %q, want url fallback", md.Title)
	}
}

func TestConcurrentSavesAreSerialized(t *testing.T) {
	f := newFixture(t)
	owner := f.login(t, "admin123", "")

	var wg sync.WaitGroup
	urls := []string{"https://a.com", "https://b.com", "https://c.com", "https://d.com", "https://e.com"}
	for _, u := range urls {
		wg.Add(1)
		go func(u string) {
			defer wg.Done()
			if _, err := f.svc.Save(context.Background(), owner.SessionID, domain.LinkInput{URL: u, Title: u}); err != nil {
				t.Errorf("Save(%s) error = %v", u, err)
			}
		}(u)
	}
	wg.Wait()

	if got := len(f.driveTable(t, "owner_links.xlsx")); got != len(urls) {
		t.Errorf("drive holds %d links, want %d (lost update)", got, len(urls))
	}
	if f.svc.sessionLocks.size() != 0 || f.svc.fileLocks.size() != 0 {
		t.Error("keyed locks leaked")
	}
}

func TestImport(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := domain.Identity{Mode: domain.ModeOwner}

	report, err := f.svc.Import(ctx, owner, []domain.LinkInput{
		{URL: "https://x.com", Title: "X"},
		{URL: "https://y.com", Title: "Y"},
		{URL: "https://x.com", Title: "X again"},
		{URL: "not-a-url", Title: "bad"},
	})
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if report.Saved != 2 || report.Updated != 1 || len(report.Skipped) != 1 {
		t.Errorf("report = %+v, want 2 saved, 1 updated, 1 skipped", report)
	}

	data, err := f.svc.ExportIdentity(ctx, owner)
	if err != nil {
		t.Fatalf("ExportIdentity() error = %v", err)
	}
	table, _ := sheet.Decode(data)
	if len(table) != 2 {
		t.Errorf("drive rows = %d, want 2", len(table))
	}

	if _, err := f.svc.Import(ctx, domain.Public(), nil); err == nil {
		t.Error("Import() into public mode should fail")
	}
}

func TestReady(t *testing.T) {
	f := newFixture(t)
	if err := f.svc.Ready(context.Background()); err != nil {
		t.Errorf("Ready() error = %v", err)
	}
}
