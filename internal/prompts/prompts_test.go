package prompts

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/trivium/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	tests := []struct {
		name string
		tpl  string
		vars map[string]string
		want string
	}{
		{"known key", "Chapter {chapter}", map[string]string{"chapter": "2"}, "Chapter 2"},
		{"unknown key kept", "{chapter} {missing}", map[string]string{"chapter": "2"}, "2 {missing}"},
		{"json braces kept", `{"verdict": "{v}"}`, map[string]string{"v": "approve"}, `{"verdict": "approve"}`},
		{"value not re-expanded", "{a}", map[string]string{"a": "{b}", "b": "x"}, "{b}"},
		{"empty value", "[{a}]", map[string]string{"a": ""}, "[]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Render(tt.tpl, tt.vars))
		})
	}
}

func TestLibrary_BuiltinTemplates(t *testing.T) {
	lib := NewLibrary("")
	for _, name := range []string{
		Draft, Synthesis, ReviewCodeConsistency, ReviewSkillCompliance, Validation,
		Revision, Polish, Vote, InitUnderstanding, InitFlow, StructureGuide,
	} {
		tpl, err := lib.Template(name)
		require.NoError(t, err, name)
		assert.NotEmpty(t, tpl, name)
	}

	synthesis, _ := lib.Template(Synthesis)
	assert.Contains(t, synthesis, "===SYNTHESIS NOTES===")
}

func TestLibrary_OverrideDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "vote.md"), []byte("custom {final_draft}"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "extra.md"), []byte("extra"), 0644))

	lib := NewLibrary(dir)

	tpl, err := lib.Template("vote")
	require.NoError(t, err)
	assert.Equal(t, "custom {final_draft}", tpl)

	tpl, err = lib.Template("draft.md")
	require.NoError(t, err)
	assert.Contains(t, tpl, "{current_instruction}")

	assert.Contains(t, lib.Names(), "extra")
	assert.Contains(t, lib.Names(), "vote")
}

func TestLibrary_MissingTemplate(t *testing.T) {
	_, err := NewLibrary(t.TempDir()).Template("review_security")
	assert.ErrorIs(t, err, domain.ErrTemplateMissing)
}
