package desktop

import (
	"context"
	"path/filepath"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/webview-iframe/internal/host"
)

func folderOptions(dir string) host.OpenDialogOptions {
	return host.OpenDialogOptions{
		DefaultPath:      dir,
		CanSelectFolders: true,
		OpenLabel:        "Extract",
		Title:            "Directory to extract project demo",
	}
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestPickerModelConfiguresFilepicker(t *testing.T) {
	m := newPickerModel(folderOptions("/srv/projects"))

	assert.Equal(t, "/srv/projects", m.picker.CurrentDirectory)
	assert.True(t, m.picker.DirAllowed)
	assert.False(t, m.picker.FileAllowed)
	assert.Contains(t, m.View(), "Directory to extract project demo")
	assert.Contains(t, m.View(), "Extract")
}

func TestPickerModelSelectsCurrentDirectory(t *testing.T) {
	dir := t.TempDir()
	m := newPickerModel(folderOptions(dir))

	next, cmd := m.Update(runes("."))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.Equal(t, dir, next.(pickerModel).selected)
	assert.Empty(t, next.View())
}

func TestPickerModelCancels(t *testing.T) {
	for _, key := range []tea.KeyMsg{
		{Type: tea.KeyEsc},
		{Type: tea.KeyCtrlC},
		runes("q"),
	} {
		t.Run(key.String(), func(t *testing.T) {
			m := newPickerModel(folderOptions(t.TempDir()))

			next, cmd := m.Update(key)
			require.NotNil(t, cmd)
			assert.IsType(t, tea.QuitMsg{}, cmd())
			assert.Empty(t, next.(pickerModel).selected)
		})
	}
}

func TestPickerModelFilesOnlyIgnoresDot(t *testing.T) {
	m := newPickerModel(host.OpenDialogOptions{DefaultPath: t.TempDir(), CanSelectFiles: true})

	next, _ := m.Update(runes("."))
	assert.Empty(t, next.(pickerModel).selected)
}

func TestStaticPicker(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "projects")

	paths, err := StaticPicker{Dir: dir}.ShowOpenDialog(context.Background(), folderOptions("/ignored"))
	require.NoError(t, err)
	assert.Equal(t, []string{dir}, paths)
	assert.DirExists(t, dir)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = StaticPicker{Dir: dir}.ShowOpenDialog(ctx, folderOptions("/ignored"))
	assert.ErrorIs(t, err, context.Canceled)
}
