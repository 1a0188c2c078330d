package entity

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisplayNumberKeepsUpstreamShape(t *testing.T) {
	var contents []RetrievalContent
	raw := `[{"content_id":"a","number":1},{"content_id":"b","number":"2a"},{"content_id":"c","number":null},{"content_id":"d"}]`
	require.NoError(t, json.Unmarshal([]byte(raw), &contents))

	assert.Equal(t, "1", contents[0].Number.String())
	assert.True(t, contents[0].Number.IsNumeric())
	assert.Equal(t, "2a", contents[1].Number.String())
	assert.False(t, contents[1].Number.IsNumeric())
	assert.True(t, contents[2].Number.IsZero())
	assert.True(t, contents[3].Number.IsZero())

	out, err := json.Marshal([]UniqueAttribution{
		{ContentID: "a", Number: contents[0].Number},
		{ContentID: "b", Number: contents[1].Number},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `[{"content_id":"a","number":1},{"content_id":"b","number":"2a"}]`, string(out))
}

func TestDisplayNumberRejectsObjects(t *testing.T) {
	var d DisplayNumber
	assert.Error(t, json.Unmarshal([]byte(`{"n":1}`), &d))
}

func TestRetrievalInfoScreenshot(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want string
		ok   bool
	}{
		{"page image", `{"content_metadatas":[{"page_img":"abc123"}]}`, "abc123", true},
		{"screenshot fallback", `{"content_metadatas":[{"screenshot_base64":"zz"}]}`, "zz", true},
		{"page image wins", `{"content_metadatas":[{"page_img":"p","screenshot_base64":"s"}]}`, "p", true},
		{"empty metadata", `{"content_metadatas":[{}]}`, "", false},
		{"only first entry counts", `{"content_metadatas":[{},{"page_img":"late"}]}`, "", false},
		{"no metadata", `{}`, "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var info RetrievalInfo
			require.NoError(t, json.Unmarshal([]byte(tc.raw), &info))
			got, ok := info.Screenshot()
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}
