// Package scope resolves whether the gateway serves a single package or a whole
// workspace, and holds the read-only set of packages visible for that scope.
package scope

import (
	"strings"

	engineDomain "github.com/allisson/uapf-mcp/internal/engine/domain"
	apperrors "github.com/allisson/uapf-mcp/internal/errors"
)

// Mode is the operating scope of the gateway.
type Mode string

const (
	// ModePackage exposes exactly one package.
	ModePackage Mode = "package"
	// ModeWorkspace exposes every package the engine lists.
	ModeWorkspace Mode = "workspace"
)

// Signals are the configuration inputs to mode resolution.
type Signals struct {
	// Override is "package", "workspace", or "auto"/"" for no override.
	Override string
	// PackagePointer is the configured single-package location.
	PackagePointer string
	// WorkspacePointer is the configured workspace location.
	WorkspacePointer string
}

// ValidateSignals reports a fatal configuration error when an explicit override
// lacks its companion pointer. It performs no I/O.
func ValidateSignals(sig Signals) error {
	switch strings.ToLower(sig.Override) {
	case "", "auto":
		return nil
	case string(ModePackage):
		if strings.TrimSpace(sig.PackagePointer) == "" {
			return apperrors.Wrap(apperrors.ErrInvalidInput, "mode override package requires a package path")
		}
		return nil
	case string(ModeWorkspace):
		if strings.TrimSpace(sig.WorkspacePointer) == "" {
			return apperrors.Wrap(apperrors.ErrInvalidInput, "mode override workspace requires a workspace directory")
		}
		return nil
	}
	return apperrors.Wrapf(apperrors.ErrInvalidInput, "unknown mode override %q", sig.Override)
}

// ResolveMode picks the scope in priority order: validated override, workspace
// pointer, package pointer, probed engine mode, then package.
func ResolveMode(sig Signals, probedEngineMode string) (Mode, error) {
	if err := ValidateSignals(sig); err != nil {
		return "", err
	}

	switch strings.ToLower(sig.Override) {
	case string(ModePackage):
		return ModePackage, nil
	case string(ModeWorkspace):
		return ModeWorkspace, nil
	}

	if strings.TrimSpace(sig.WorkspacePointer) != "" {
		return ModeWorkspace, nil
	}
	if strings.TrimSpace(sig.PackagePointer) != "" {
		return ModePackage, nil
	}

	switch probedEngineMode {
	case engineDomain.EngineModeWorkspace:
		return ModeWorkspace, nil
	case engineDomain.EngineModePackages:
		return ModePackage, nil
	}

	return ModePackage, nil
}

// ResolveEngineMode picks the engine mode reported to clients: an explicit
// override, else the probed mode, else "packages".
func ResolveEngineMode(override, probed string) string {
	switch strings.ToLower(override) {
	case engineDomain.EngineModePackages, engineDomain.EngineModeWorkspace:
		return strings.ToLower(override)
	}
	if probed != "" {
		return probed
	}
	return engineDomain.EngineModePackages
}

// Scope is the resolved, immutable view of what the gateway serves.
type Scope struct {
	Mode       Mode
	EngineMode string
	EngineURL  string
	// Packages is the visible set. In package mode it holds only ScopedPackage.
	Packages []engineDomain.Package
	// ScopedPackage is the locked package in package mode, nil in workspace mode.
	ScopedPackage *engineDomain.Package

	index map[string]int
}

// New builds a Scope. In package mode scoped must be non-nil and becomes the
// only visible package.
func New(mode Mode, engineMode, engineURL string, packages []engineDomain.Package, scoped *engineDomain.Package) *Scope {
	s := &Scope{
		Mode:       mode,
		EngineMode: engineMode,
		EngineURL:  engineURL,
	}

	if mode == ModePackage && scoped != nil {
		pkg := *scoped
		s.ScopedPackage = &pkg
		s.Packages = []engineDomain.Package{pkg}
	} else {
		s.Packages = append([]engineDomain.Package(nil), packages...)
	}

	s.index = make(map[string]int, len(s.Packages))
	for i, p := range s.Packages {
		if _, exists := s.index[p.PackageID]; !exists {
			s.index[p.PackageID] = i
		}
	}
	return s
}

// Lookup returns a visible package by id.
func (s *Scope) Lookup(packageID string) (*engineDomain.Package, bool) {
	i, ok := s.index[packageID]
	if !ok {
		return nil, false
	}
	return &s.Packages[i], true
}

// Target checks that packageID may be operated on. In package mode a mismatch
// is a scope_mismatch; an id outside the visible set is unknown_package.
func (s *Scope) Target(packageID string) (*engineDomain.Package, error) {
	if s.Mode == ModePackage && s.ScopedPackage != nil && packageID != s.ScopedPackage.PackageID {
		return nil, apperrors.Newf(
			apperrors.CodeScopeMismatch,
			"package mode is locked to %s",
			s.ScopedPackage.PackageID,
		)
	}

	pkg, ok := s.Lookup(packageID)
	if !ok {
		return nil, apperrors.Newf(apperrors.CodeUnknownPackage, "package %s is not available", packageID)
	}
	return pkg, nil
}
