package completion

import (
	"fmt"
	"os"
	"path/filepath"
)

// CompletionManager generates and installs the completion script of one
// shell. The script lands in the first of the shell's candidate directories
// that can be created and made accessible.
type CompletionManager struct {
	Shell       string
	ProgramName string
	Paths       CompletionPaths
	generator   Generator
	script      string
}

// NewCompletionManager returns a manager installing completion scripts for
// shell. programName may be a full path, only its base name is used.
func NewCompletionManager(shell, programName string) (*CompletionManager, error) {
	paths, err := getCompletionPaths(shell)
	if err != nil {
		return nil, fmt.Errorf("failed to get completion paths: %w", err)
	}

	return &CompletionManager{
		Shell:       shell,
		ProgramName: filepath.Base(programName),
		Paths:       paths,
		generator:   GetGenerator(shell),
	}, nil
}

// Accept generates and stores the completion script for data.
func (cm *CompletionManager) Accept(data CompletionData) {
	cm.script = cm.generator.Generate(cm.ProgramName, data)
}

// SaveCompletion writes the previously generated script into the shell's
// completion directory and returns the written path.
func (cm *CompletionManager) SaveCompletion() (string, error) {
	if cm.script == "" {
		return "", fmt.Errorf("no completion script generated")
	}

	dir, err := cm.ensureCompletionPath()
	if err != nil {
		return "", err
	}

	path := filepath.Join(dir, cm.scriptName())
	if err := os.WriteFile(path, []byte(cm.script), 0644); err != nil {
		return "", fmt.Errorf("failed to write completion file: %w", err)
	}

	return path, ensurePermission(path, 0644)
}

// ensureCompletionPath creates the primary completion directory, falling back
// to the alternative when the primary cannot be created or chmodded. The
// returned directory is where the script belongs.
func (cm *CompletionManager) ensureCompletionPath() (string, error) {
	perm := os.FileMode(0755)

	err := os.MkdirAll(cm.Paths.Primary, perm)
	if err == nil {
		if err = ensurePermission(cm.Paths.Primary, perm); err == nil {
			return cm.Paths.Primary, nil
		}
	}
	if cm.Paths.Fallback == "" {
		return "", fmt.Errorf("failed to create completion directory: %w", err)
	}

	if err := os.MkdirAll(cm.Paths.Fallback, perm); err != nil {
		return "", fmt.Errorf("failed to create fallback completion directory: %w", err)
	}

	return cm.Paths.Fallback, ensurePermission(cm.Paths.Fallback, perm)
}

// scriptName renders the file name the shell expects. Zsh function files
// must start with an underscore, bash uses the bare program name.
func (cm *CompletionManager) scriptName() string {
	if cm.Shell == "zsh" {
		return "_" + cm.ProgramName
	}

	return cm.ProgramName
}
