package module

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"cachetrace/internal/adapters/twemcache"
	"cachetrace/internal/modkit"
	"cachetrace/internal/platform/config"
	perr "cachetrace/internal/platform/errors"
	kit "cachetrace/internal/platform/testkit"
	"cachetrace/internal/services/convert/domain"
	"cachetrace/internal/services/convert/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromConfig_Defaults(t *testing.T) {
	o := FromConfig(config.New())
	assert.Equal(t, "ycsb", o.Profile)
	assert.Equal(t, 63, o.HashLen)
	assert.Equal(t, "sha256", o.Hash)
	assert.False(t, o.Dedup)
	assert.Equal(t, "skip", o.Malformed)
	assert.Equal(t, int64(service.DefaultProgressEvery), o.ProgressEvery)
	assert.Equal(t, ".", o.Fetch.WorkDir)
	assert.Equal(t, 3, o.Fetch.Retries)
	assert.Equal(t, time.Duration(0), o.Fetch.HTTPTimeout)
	assert.Equal(t, "native", o.Decomp.Kind)
	require.NoError(t, o.Validate())
}

func TestFromConfig_ProfileDefaultsAndOverrides(t *testing.T) {
	t.Setenv("CONVERT_PROFILE", "TwemCache")
	o := FromConfig(config.New())
	assert.Equal(t, "twemcache", o.Profile)
	assert.Equal(t, 15, o.HashLen)
	assert.True(t, o.Dedup)

	t.Setenv("CONVERT_HASH_LEN", "40")
	t.Setenv("CONVERT_DEDUP", "false")
	t.Setenv("CONVERT_FETCH_SAMPLE_URL", "http://127.0.0.1:9/samples/")
	t.Setenv("CONVERT_DECOMP_KIND", "zstd")
	t.Setenv("CONVERT_DECOMP_THREADS", "16")
	o = FromConfig(config.New())
	assert.Equal(t, 40, o.HashLen)
	assert.False(t, o.Dedup)
	assert.Equal(t, "http://127.0.0.1:9/samples", o.Fetch.SampleURL)
	assert.Equal(t, "zstd", o.Decomp.Kind)
	assert.Equal(t, 16, o.Decomp.Threads)
	require.NoError(t, o.Validate())

	p, err := o.ResolveProfile()
	require.NoError(t, err)
	assert.Equal(t, "GET", p.Tokens[1])
	assert.Equal(t, 40, p.HashLen)
	assert.False(t, p.Dedup)
}

func TestValidate_Errors(t *testing.T) {
	base := FromConfig(config.New())

	cases := []struct {
		name  string
		mut   func(*Options)
		field string
	}{
		{"profile", func(o *Options) { o.Profile = "redis" }, "--profile"},
		{"hash len zero", func(o *Options) { o.HashLen = 0 }, "--hash-len"},
		{"hash len beyond sha256", func(o *Options) { o.HashLen = 65 }, "--hash-len"},
		{"hash", func(o *Options) { o.Hash = "md5" }, "--hash"},
		{"malformed", func(o *Options) { o.Malformed = "ignore" }, "--malformed"},
		{"retries", func(o *Options) { o.Fetch.Retries = -1 }, "--retries"},
		{"decompressor", func(o *Options) { o.Decomp.Kind = "xz" }, "--decompressor"},
		{"work dir", func(o *Options) { o.Fetch.WorkDir = "" }, "--work-dir"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			o := base
			c.mut(&o)
			err := o.Validate()
			require.Error(t, err)
			e, ok := perr.As(err)
			require.True(t, ok)
			assert.Equal(t, perr.ErrorCodeValidation, e.Code())
			assert.Equal(t, c.field, e.Field())
		})
	}

	// sha512 widens the limit
	o := base
	o.Hash, o.HashLen = "sha512", 100
	require.NoError(t, o.Validate())
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	t.Setenv("CONVERT_HASH_LEN", "99")
	_, err := New(modkit.Deps{Cfg: config.New()})
	require.Error(t, err)
	assert.Equal(t, 1, perr.ExitCode(err))
	kit.MustContain(t, err.Error(), "--hash-len")
}

func TestNew_RunsClusterEndToEnd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/s/cluster052" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("0,userkey123,1,1,1,get,0\n1,userkey123,1,1,1,set,0\n2,x,1,1,1,touch,0\n"))
	}))
	defer srv.Close()

	work := t.TempDir()
	out := t.TempDir()
	t.Setenv("CONVERT_PROFILE", "twemcache")
	t.Setenv("CONVERT_OUT_DIR", out)
	t.Setenv("CONVERT_FETCH_WORK_DIR", work)
	t.Setenv("CONVERT_FETCH_SAMPLE_URL", srv.URL+"/s")

	m, err := New(modkit.Deps{Cfg: config.New()})
	require.NoError(t, err)
	assert.Equal(t, "convert", m.Name())
	_, ok := m.Ports().(Ports)
	assert.True(t, ok)

	st, err := m.Runner().Run(context.Background(), domain.ClusterSource(twemcache.ClusterRef{Index: 52, Variant: twemcache.VariantSample}))
	require.NoError(t, err)
	assert.Equal(t, int64(3), st.Lines)
	assert.Equal(t, int64(2), st.Converted)
	assert.Equal(t, int64(1), st.Dropped)
	assert.Equal(t, int64(1), st.Unique)

	full := kit.ReadLines(t, filepath.Join(out, "cluster052_full.txt"))
	require.Len(t, full, 2)
	assert.Equal(t, "GET,"+full[0][4:], full[0])
	assert.Equal(t, "SET,"+full[0][4:], full[1])
	assert.Len(t, full[0][4:], 15)
	assert.Len(t, kit.ReadLines(t, filepath.Join(out, "cluster052_unique.txt")), 1)
}
