package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kdeps/mediacmd/pkg/domain"
	"github.com/kdeps/mediacmd/pkg/encoder"
	"github.com/kdeps/mediacmd/pkg/environment"
	apperr "github.com/kdeps/mediacmd/pkg/errors"
	"github.com/kdeps/mediacmd/pkg/logging"
	"github.com/kdeps/mediacmd/pkg/pipeline"
	"github.com/kdeps/mediacmd/pkg/policy"
	"github.com/kdeps/mediacmd/pkg/store"
)

const registryFile = "/data/imageData.json"

var testPaths = environment.Paths{
	DataDir:        "/data",
	ImagesDir:      "/data/images",
	DownloadingDir: "/data/images/downloading",
	RegistryFile:   registryFile,
}

// stubAcquirer writes size bytes to /data/images/<command>.jpg.
type stubAcquirer struct {
	fs    afero.Fs
	size  int
	calls int
	err   error
}

func (s *stubAcquirer) Acquire(_ context.Context, sourceURL, command, author string) (*domain.Record, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	path := "/data/images/" + command + ".jpg"
	if err := afero.WriteFile(s.fs, path, make([]byte, s.size), 0o644); err != nil {
		return nil, err
	}
	rec := domain.NewRecord(command, sourceURL, author, command, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	rec.LocalPath = path
	rec.Extension = ".jpg"
	rec.SetSize(int64(s.size))
	return rec, nil
}

// failingStore fails Save after the first n successes.
type failingStore struct {
	store.Store
	allowed int
}

func (f *failingStore) Save(doc *store.Document) error {
	if f.allowed <= 0 {
		return apperr.NewStorageError("write registry", registryFile, errors.New("disk full"))
	}
	f.allowed--
	return f.Store.Save(doc)
}

func newStubRegistry(t *testing.T, size int) (*Registry, afero.Fs, *stubAcquirer) {
	t.Helper()
	fs := afero.NewMemMapFs()
	acq := &stubAcquirer{fs: fs, size: size}
	logger := logging.NewTestLogger()
	reg := New(fs, store.NewFileStore(fs, registryFile, logger), acq, logger)
	require.NoError(t, reg.Load())
	return reg, fs, acq
}

func readDoc(t *testing.T, fs afero.Fs) string {
	t.Helper()
	data, err := afero.ReadFile(fs, registryFile)
	require.NoError(t, err)
	return string(data)
}

func TestAddAndResolve(t *testing.T) {
	reg, _, _ := newStubRegistry(t, 1000)
	ctx := context.Background()

	res, err := reg.Add(ctx, "https://example.com/cat.png", "cat", "alice")
	require.NoError(t, err)
	assert.Equal(t, policy.ServeInline, res.Decision)
	assert.False(t, res.Advisory)
	assert.Equal(t, "cat", res.Record.Command)

	d, err := reg.Resolve("cat")
	require.NoError(t, err)
	assert.Equal(t, policy.ServeInline, d.Decision)
	assert.Equal(t, "/data/images/cat.jpg", d.Target)

	_, err = reg.Resolve("dog")
	require.Error(t, err)
	assert.True(t, apperr.IsNotFound(err))
	assert.True(t, apperr.HasErrorCode(err, apperr.ErrUnknownCommand))
}

func TestAddOversizeCarriesAdvisory(t *testing.T) {
	reg, _, _ := newStubRegistry(t, 300001)

	res, err := reg.Add(context.Background(), "https://example.com/big.gif", "big", "alice")
	require.NoError(t, err)
	assert.True(t, res.Advisory)
	assert.Equal(t, policy.ServeRemoteLink, res.Decision)
	assert.Equal(t, 1, reg.Len())

	d, err := reg.Resolve("big")
	require.NoError(t, err)
	assert.Equal(t, policy.ServeRemoteLink, d.Decision)
	assert.Equal(t, "https://example.com/big.gif", d.Target)
}

func TestAddDuplicateRejectedBeforeIO(t *testing.T) {
	reg, _, acq := newStubRegistry(t, 10)
	ctx := context.Background()

	_, err := reg.Add(ctx, "https://example.com/a.png", "cat", "alice")
	require.NoError(t, err)

	_, err = reg.Add(ctx, "https://example.com/b.png", "cat", "bob")
	require.Error(t, err)
	assert.True(t, apperr.IsValidation(err))
	assert.True(t, apperr.HasErrorCode(err, apperr.ErrDuplicateCommand))
	assert.Equal(t, 1, acq.calls)
	assert.Equal(t, 1, reg.Len())
}

func TestAddNormalizesCase(t *testing.T) {
	reg, fs, acq := newStubRegistry(t, 10)
	ctx := context.Background()

	res, err := reg.Add(ctx, "https://example.com/Cat.png", "Cat", "alice")
	require.NoError(t, err)
	assert.Equal(t, "cat", res.Record.Command)
	assert.Equal(t, "https://example.com/Cat.png", res.Record.SourceURL)
	assert.JSONEq(t, `["cat"]`, mustCommands(t, fs))

	_, err = reg.Add(ctx, "https://example.com/b.png", "CAT", "bob")
	assert.True(t, apperr.HasErrorCode(err, apperr.ErrDuplicateCommand))
	assert.Equal(t, 1, acq.calls)

	for _, c := range []string{"Cat", "cat", "CAT"} {
		d, err := reg.Resolve(c)
		require.NoError(t, err, c)
		assert.Equal(t, "cat", d.Record.Command, c)
	}
}

func TestResolveMixedCaseLegacyEntry(t *testing.T) {
	fs := afero.NewMemMapFs()
	doc := `{"images":{"Dog":{"command":"Dog","sourceUrl":"https://x/dog.gif"}},"commands":["Dog"]}`
	require.NoError(t, afero.WriteFile(fs, registryFile, []byte(doc), 0o644))

	logger := logging.NewTestLogger()
	reg := New(fs, store.NewFileStore(fs, registryFile, logger), &stubAcquirer{fs: fs}, logger)
	require.NoError(t, reg.Load())

	for _, c := range []string{"Dog", "dog"} {
		d, err := reg.Resolve(c)
		require.NoError(t, err, c)
		assert.Equal(t, "https://x/dog.gif", d.Target, c)
	}

	_, err := reg.Add(context.Background(), "https://x/other.png", "dog", "bob")
	assert.True(t, apperr.HasErrorCode(err, apperr.ErrDuplicateCommand))
}

func mustCommands(t *testing.T, fs afero.Fs) string {
	t.Helper()
	var doc struct {
		Commands []string `json:"commands"`
	}
	require.NoError(t, json.Unmarshal([]byte(readDoc(t, fs)), &doc))
	out, err := json.Marshal(doc.Commands)
	require.NoError(t, err)
	return string(out)
}

func TestAddValidation(t *testing.T) {
	reg, fs, acq := newStubRegistry(t, 10)
	ctx := context.Background()

	cases := []struct {
		url, command string
		code         apperr.ErrorCode
	}{
		{"https://example.com/a.png", "", apperr.ErrValidation},
		{"", "cat", apperr.ErrValidation},
		{"ftp://example.com/a.png", "cat", apperr.ErrValidation},
		{"not a url", "cat", apperr.ErrValidation},
		{"https://example.com/a.png", "two words", apperr.ErrValidation},
		{"https://example.com/a.png", strings.Repeat("x", 101), apperr.ErrCommandTooLong},
	}
	for _, tc := range cases {
		_, err := reg.Add(ctx, tc.url, tc.command, "alice")
		require.Error(t, err, tc.command)
		assert.True(t, apperr.IsValidation(err), tc.command)
		assert.True(t, apperr.HasErrorCode(err, tc.code), tc.command)
	}
	assert.Equal(t, 0, acq.calls)

	exists, _ := afero.Exists(fs, registryFile)
	assert.False(t, exists)

	_, err := reg.Add(ctx, "https://example.com/a.png", strings.Repeat("x", 100), "alice")
	assert.NoError(t, err)
}

func TestAddAcquisitionFailureLeavesRegistry(t *testing.T) {
	reg, fs, acq := newStubRegistry(t, 10)
	acq.err = apperr.NewAcquisitionError("https://example.com/a.png", errors.New("refused"))

	_, err := reg.Add(context.Background(), "https://example.com/a.png", "cat", "alice")
	require.Error(t, err)
	assert.True(t, apperr.IsAcquisition(err))
	assert.Equal(t, 0, reg.Len())
	exists, _ := afero.Exists(fs, registryFile)
	assert.False(t, exists)
}

func TestAddRevertsWhenSaveFails(t *testing.T) {
	fs := afero.NewMemMapFs()
	logger := logging.NewTestLogger()
	st := &failingStore{Store: store.NewFileStore(fs, registryFile, logger)}
	reg := New(fs, st, &stubAcquirer{fs: fs, size: 5}, logger)

	_, err := reg.Add(context.Background(), "https://example.com/a.png", "cat", "alice")
	require.Error(t, err)
	assert.True(t, apperr.IsStorage(err))
	assert.Equal(t, 0, reg.Len())
	assert.Contains(t, logger.GetOutput(), "reverting")
}

func TestRemove(t *testing.T) {
	reg, fs, _ := newStubRegistry(t, 10)
	ctx := context.Background()
	for _, c := range []string{"a", "b", "c"} {
		_, err := reg.Add(ctx, "https://example.com/"+c+".png", c, "alice")
		require.NoError(t, err)
	}

	rec, err := reg.Remove(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "b", rec.Command)
	exists, _ := afero.Exists(fs, "/data/images/b.jpg")
	assert.False(t, exists)

	var commands []string
	for _, r := range reg.List() {
		commands = append(commands, r.Command)
	}
	assert.Equal(t, []string{"a", "c"}, commands)
}

func TestRemoveOutOfBoundsLeavesEverything(t *testing.T) {
	reg, fs, _ := newStubRegistry(t, 10)
	ctx := context.Background()
	_, err := reg.Add(ctx, "https://example.com/a.png", "a", "alice")
	require.NoError(t, err)
	before := readDoc(t, fs)

	for _, idx := range []int{1, 2, -1} {
		_, err = reg.Remove(ctx, idx)
		require.Error(t, err)
		assert.True(t, apperr.IsNotFound(err))
	}

	assert.Equal(t, 1, reg.Len())
	assert.Equal(t, before, readDoc(t, fs))
	exists, _ := afero.Exists(fs, "/data/images/a.jpg")
	assert.True(t, exists)
}

func TestRemoveToleratesMissingFile(t *testing.T) {
	reg, fs, _ := newStubRegistry(t, 10)
	ctx := context.Background()
	_, err := reg.Add(ctx, "https://example.com/a.png", "a", "alice")
	require.NoError(t, err)
	require.NoError(t, fs.Remove("/data/images/a.jpg"))

	rec, err := reg.Remove(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, "a", rec.Command)
	assert.Equal(t, 0, reg.Len())
	assert.Contains(t, reg.logger.GetOutput(), "already absent")
}

func TestRemoveRevertsWhenSaveFails(t *testing.T) {
	fs := afero.NewMemMapFs()
	logger := logging.NewTestLogger()
	st := &failingStore{Store: store.NewFileStore(fs, registryFile, logger), allowed: 2}
	reg := New(fs, st, &stubAcquirer{fs: fs, size: 5}, logger)
	ctx := context.Background()

	for _, c := range []string{"a", "b"} {
		_, err := reg.Add(ctx, "https://example.com/"+c+".png", c, "alice")
		require.NoError(t, err)
	}

	_, err := reg.Remove(ctx, 0)
	require.Error(t, err)
	assert.True(t, apperr.IsStorage(err))

	list := reg.List()
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].Command)
	assert.Equal(t, "b", list[1].Command)
}

func TestParseIndex(t *testing.T) {
	n, err := ParseIndex(" 3 ")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = ParseIndex("-1")
	require.NoError(t, err)
	assert.Equal(t, -1, n)

	for _, raw := range []string{"", "abc", "1.5"} {
		_, err = ParseIndex(raw)
		require.Error(t, err, raw)
		assert.True(t, apperr.HasErrorCode(err, apperr.ErrInvalidIndex), raw)
		assert.True(t, apperr.IsValidation(err), raw)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	reg, fs, _ := newStubRegistry(t, 10)
	ctx := context.Background()
	for _, c := range []string{"z", "a", "m"} {
		_, err := reg.Add(ctx, "https://example.com/"+c+".png", c, "alice")
		require.NoError(t, err)
	}

	logger := logging.NewTestLogger()
	again := New(fs, store.NewFileStore(fs, registryFile, logger), nil, logger)
	require.NoError(t, again.Load())
	assert.Equal(t, reg.List(), again.List())
}

func TestLoadRepairsDocument(t *testing.T) {
	fs := afero.NewMemMapFs()
	doc := `{"images":{"a":{"command":"a","sourceUrl":"https://x/a.png"}},"commands":["a","ghost"]}`
	require.NoError(t, afero.WriteFile(fs, registryFile, []byte(doc), 0o644))

	logger := logging.NewTestLogger()
	reg := New(fs, store.NewFileStore(fs, registryFile, logger), nil, logger)
	require.NoError(t, reg.Load())
	assert.Equal(t, 1, reg.Len())
	assert.Contains(t, logger.GetOutput(), "repaired")
}

func TestLoadCorruptFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, registryFile, []byte("nope"), 0o644))

	logger := logging.NewTestLogger()
	reg := New(fs, store.NewFileStore(fs, registryFile, logger), nil, logger)
	err := reg.Load()
	require.Error(t, err)
	assert.True(t, apperr.IsStorage(err))
}

func TestListReturnsCopies(t *testing.T) {
	reg, _, _ := newStubRegistry(t, 10)
	_, err := reg.Add(context.Background(), "https://example.com/a.png", "a", "alice")
	require.NoError(t, err)

	list := reg.List()
	list[0].SourceURL = "mutated"
	d, err := reg.Resolve("a")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/a.png", d.Record.SourceURL)
}

// End-to-end through the real pipeline, with an httptest remote and a fake
// compressor.

func newPipelineRegistry(t *testing.T, hits *int32, encodedSize int) (*Registry, afero.Fs, string) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		_, _ = w.Write(buf.Bytes())
	}))
	t.Cleanup(server.Close)

	fs := afero.NewMemMapFs()
	logger := logging.NewTestLogger()
	fake := encoder.Func(func(_ context.Context, fs afero.Fs, _, dst string) error {
		return afero.WriteFile(fs, dst, make([]byte, encodedSize), 0o644)
	})
	p := pipeline.New(fs, testPaths, encoder.Set{domain.CategoryRasterLossy: fake}, logger,
		pipeline.WithHTTPClient(server.Client()))
	reg := New(fs, store.NewFileStore(fs, registryFile, logger), p, logger)
	require.NoError(t, reg.Load())
	return reg, fs, server.URL
}

func TestEndToEndAddThenRemove(t *testing.T) {
	var hits int32
	reg, fs, base := newPipelineRegistry(t, &hits, 50000)
	ctx := context.Background()

	res, err := reg.Add(ctx, base+"/a.png", "cat", "alice")
	require.NoError(t, err)
	assert.Equal(t, ".jpg", res.Record.Extension)
	size, _ := res.Record.Size()
	assert.Equal(t, int64(50000), size)
	assert.Equal(t, policy.ServeInline, res.Decision)
	assert.Equal(t, int32(1), hits)

	exists, _ := afero.Exists(fs, res.Record.LocalPath)
	assert.True(t, exists)

	_, err = reg.Remove(ctx, 0)
	require.NoError(t, err)
	exists, _ = afero.Exists(fs, res.Record.LocalPath)
	assert.False(t, exists)
	assert.JSONEq(t, `{"images":{},"commands":[]}`, readDoc(t, fs))
}

func TestEndToEndLongCommandMakesNoRequest(t *testing.T) {
	var hits int32
	reg, _, base := newPipelineRegistry(t, &hits, 10)

	_, err := reg.Add(context.Background(), base+"/a.png", strings.Repeat("c", 101), "alice")
	require.Error(t, err)
	assert.True(t, apperr.HasErrorCode(err, apperr.ErrCommandTooLong))
	assert.Equal(t, int32(0), hits)
}
