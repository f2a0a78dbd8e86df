package classify

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"testing"

	perr "cachetrace/internal/platform/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/lotsa"
)

func sha(key string, n int) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])[:n]
}

func mustClassifier(t *testing.T, p Profile) *Classifier {
	t.Helper()
	c, err := New(p)
	require.NoError(t, err)
	return c
}

func TestClassify_EndToEndExamples(t *testing.T) {
	c := mustClassifier(t, YCSB)
	want := sha("userkey123", 63)

	rec, ok, err := c.Classify("1,userkey123,0,0,0,get,...")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "READ,"+want, rec.String())
	assert.Equal(t, ClassRead, rec.Class)

	rec, ok, err = c.Classify("1,userkey123,0,0,0,SET,...")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "UPDATE,"+want, rec.String())

	_, ok, err = c.Classify("1,userkey123,0,0,0,touch,...")
	require.NoError(t, err)
	assert.False(t, ok, "touch must be dropped")
}

func TestClassify_TwemcacheProfile(t *testing.T) {
	c := mustClassifier(t, Twemcache)
	key := sha("k", 15)

	cases := map[string]string{
		"get":     "GET," + key,
		"gets":    "GET," + key,
		"set":     "SET," + key,
		"add":     "UPD," + key,
		"cas":     "UPD," + key,
		"decr":    "UPD," + key,
		"Prepend": "UPD," + key,
	}
	for verb, want := range cases {
		rec, ok, err := c.Classify(fmt.Sprintf("0,k,1,2,3,%s,0", verb))
		require.NoError(t, err, verb)
		require.True(t, ok, verb)
		assert.Equal(t, want, rec.String(), verb)
	}
}

func TestClassify_VerbMappingExhaustiveAndDisjoint(t *testing.T) {
	c := mustClassifier(t, YCSB)

	reads := map[string]bool{"GET": true, "GETS": true}
	for _, v := range Verbs() {
		for _, form := range []string{v, strings.ToLower(v)} {
			rec, ok, err := c.Classify("0,key," + "1,1,1," + form)
			require.NoError(t, err)
			require.True(t, ok, form)
			if reads[v] {
				assert.Equal(t, "READ", rec.Category, form)
			} else {
				assert.Equal(t, "UPDATE", rec.Category, form)
			}
		}
	}

	for _, v := range []string{"TOUCH", "GAT", "GATS", "QUIT", "", "GET ", "SETS", "INCREMENT"} {
		_, ok, err := c.Classify("0,key,1,1,1," + v + ",0")
		require.NoError(t, err, v)
		assert.False(t, ok, "%q should be dropped", v)
	}
}

func TestClassify_Malformed(t *testing.T) {
	c := mustClassifier(t, YCSB)
	for _, line := range []string{"", "   ", "1,key,0,0,get", "only-one-field"} {
		_, ok, err := c.Classify(line)
		require.Error(t, err, line)
		assert.False(t, ok)
		assert.True(t, perr.IsCode(err, perr.ErrorCodeMalformed), line)
	}
}

func TestClassify_TrimsAndIgnoresTrailingFields(t *testing.T) {
	c := mustClassifier(t, YCSB)

	a, ok, err := c.Classify("  7,abc,1,2,3,get,9,extra,,more\r\n")
	require.NoError(t, err)
	require.True(t, ok)

	b, ok, err := c.Classify("7,abc,1,2,3,get")
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, a, b)
}

func TestClassify_EmptyKeyStillHashes(t *testing.T) {
	c := mustClassifier(t, YCSB)
	rec, ok, err := c.Classify("0,,0,0,0,get,0")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, sha("", 63), rec.Key)
}

func TestClassify_Idempotent(t *testing.T) {
	c := mustClassifier(t, Twemcache)
	for _, line := range []string{"1,a,0,0,0,get,0", "1,a,0,0,0,touch,0", "bad"} {
		r1, ok1, err1 := c.Classify(line)
		r2, ok2, err2 := c.Classify(line)
		assert.Equal(t, r1, r2)
		assert.Equal(t, ok1, ok2)
		assert.Equal(t, err1 == nil, err2 == nil)
	}
}

func TestClassify_ConcurrentUse(t *testing.T) {
	c := mustClassifier(t, YCSB)

	const n = 20000
	got := make([]string, n)
	lotsa.Ops(n, 8, func(i, _ int) {
		rec, ok, err := c.Classify(fmt.Sprintf("0,key-%d,0,0,0,get,0", i))
		if err != nil || !ok {
			return
		}
		got[i] = rec.Key
	})

	for i := 0; i < n; i += 997 {
		assert.Equal(t, sha(fmt.Sprintf("key-%d", i), 63), got[i])
	}
}

func TestNew_RejectsBadHashSettings(t *testing.T) {
	p := YCSB
	p.HashLen = 65
	_, err := New(p)
	require.Error(t, err)
	assert.True(t, perr.IsCode(err, perr.ErrorCodeValidation))

	p = YCSB
	p.Hash = "md5"
	_, err = New(p)
	require.Error(t, err)

	p = YCSB
	p.Hash = SHA512
	p.HashLen = 128
	c, err := New(p)
	require.NoError(t, err)
	rec, ok, err := c.Classify("0,k,0,0,0,get,0")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, rec.Key, 128)
}

func TestRecord_AppendTo(t *testing.T) {
	r := Record{Category: "READ", Key: "abc"}
	assert.Equal(t, "READ,abc", string(r.AppendTo(nil)))
	assert.Equal(t, "x:READ,abc", string(r.AppendTo([]byte("x:"))))
}
