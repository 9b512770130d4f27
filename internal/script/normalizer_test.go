package script

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/at-ishikawa/cantocards/internal/vocab"
)

func TestNormalizer_Normalize(t *testing.T) {
	normalizer := NewNormalizer(DefaultTable())

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "fully mapped word", input: "出路", want: "出路"},
		{name: "simplified word", input: "责备", want: "責備"},
		{name: "mixed scripts", input: "应聘書", want: "應聘書"},
		{name: "already traditional", input: "頭髮", want: "頭髮"},
		{name: "latin passes through", input: "HSK5 词语", want: "HSK5 詞語"},
		{name: "empty", input: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizer.Normalize(tt.input))
		})
	}
}

func TestNormalizer_Idempotent(t *testing.T) {
	normalizer := NewNormalizer(DefaultTable())

	var all strings.Builder
	for s := range DefaultTable().mapping {
		all.WriteRune(s)
		word := string(s)
		once := normalizer.Normalize(word)
		assert.Equal(t, once, normalizer.Normalize(once), "character %q", word)
	}
	once := normalizer.Normalize(all.String())
	assert.Equal(t, once, normalizer.Normalize(once))
}

func TestNewNormalizer_DropsChainedMappings(t *testing.T) {
	table := NewTable()
	require.True(t, table.Add('甲', '乙'))
	require.True(t, table.Add('乙', '丙'))

	normalizer := NewNormalizer(table)

	once := normalizer.Normalize("甲乙")
	assert.Equal(t, "乙乙", once)
	assert.Equal(t, once, normalizer.Normalize(once))
}

func TestTable_Add(t *testing.T) {
	table := NewTable()
	assert.True(t, table.Add('发', '發'))
	assert.False(t, table.Add('发', '髮'), "first mapping wins")
	assert.False(t, table.Add('中', '中'), "identity mappings are ignored")
	assert.Equal(t, 1, table.Len())
}

func TestParseTable(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantLen int
		wantErr bool
	}{
		{
			name:    "comments and blank lines",
			input:   "# header\n\n爱\t愛\n罢\t罷\n",
			wantLen: 2,
		},
		{
			name:    "too many fields",
			input:   "爱\t愛\t x\n",
			wantErr: true,
		},
		{
			name:    "multi character field",
			input:   "爱情\t愛情\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTable(strings.NewReader(tt.input))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantLen, got.Len())
		})
	}
}

func TestTable_MergeCEDICT(t *testing.T) {
	cedict := `# CC-CEDICT
# comment line
乾 干 [gan1] /dry/
幹 干 [gan4] /tree trunk/
髮 发 [fa4] /hair/
中 中 [zhong1] /middle/
頭髮 头发 [tou2 fa5] /hair (on the head)/
`
	table := NewTable()
	added, err := table.MergeCEDICT(strings.NewReader(cedict))
	require.NoError(t, err)
	assert.Equal(t, 2, added)

	normalizer := NewNormalizer(table)
	assert.Equal(t, "乾髮", normalizer.Normalize("干发"))
}

func TestNormalizer_Word(t *testing.T) {
	normalizer := NewNormalizer(DefaultTable())
	assert.Equal(t, vocab.Word{Simplified: "应聘", Traditional: "應聘"}, normalizer.Word("  应聘 \t"))
}
