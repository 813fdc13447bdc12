package core

import (
	"github.com/google/uuid"

	"github.com/GriffinCanCode/modshell/internal/domain/activation"
	"github.com/GriffinCanCode/modshell/internal/domain/catalog"
	"github.com/GriffinCanCode/modshell/internal/domain/navigation"
	"github.com/GriffinCanCode/modshell/internal/infrastructure/config"
	"github.com/GriffinCanCode/modshell/internal/shared/types"
)

// Frame GUIDs
var (
	HomeGUID    = uuid.MustParse("6f1c2a9e-3b0d-4d8e-9a51-2f7c3e8b1a01")
	SetupGUID   = uuid.MustParse("6f1c2a9e-3b0d-4d8e-9a51-2f7c3e8b1a02")
	InstallGUID = uuid.MustParse("6f1c2a9e-3b0d-4d8e-9a51-2f7c3e8b1a03")
)

// Handler GUIDs
var (
	ArchiveHandlerGUID = uuid.MustParse("6f1c2a9e-3b0d-4d8e-9a51-2f7c3e8b1b01")
	LaunchHandlerGUID  = uuid.MustParse("6f1c2a9e-3b0d-4d8e-9a51-2f7c3e8b1b02")
)

// Part IDs
const (
	SettingsPart       = "core.settings"
	DataDirPart        = "core.data-dir"
	JournalPart        = "core.journal"
	HomePart           = "core.frame.home"
	SetupPart          = "core.frame.setup"
	InstallPart        = "core.frame.install"
	SetupGuardPart     = "core.guard.setup"
	ArchiveHandlerPart = "core.handler.archive"
	LaunchHandlerPart  = "core.handler.launch"
)

// Module registers the built-in parts
type Module struct{}

func (Module) Name() string    { return "core" }
func (Module) Version() string { return "1.0.0" }

func (Module) Register(r *catalog.Registrar) {
	var (
		settings   = types.ContractOf[Settings]()
		journal    = types.ContractOf[*Journal]()
		shellCfg   = types.ContractOf[*config.Config]()
		dispatcher = types.ContractOf[*activation.Dispatcher]()
		navigator  = types.ContractOf[*navigation.Registry]()
		frame      = types.ContractOf[navigation.Frame]()
		guard      = types.ContractOf[navigation.Guard]()
		handler    = types.ContractOf[activation.Handler]()
	)
	one := func(contract string) types.Requirement {
		return types.Requirement{Contract: contract, Cardinality: types.ExactlyOne}
	}

	r.Part(types.PartDescriptor{
		ID:        SettingsPart,
		Contracts: []string{settings},
		Requires:  []types.Requirement{one(shellCfg)},
	}, newSettings)

	r.Part(types.PartDescriptor{
		ID:       DataDirPart,
		Requires: []types.Requirement{one(settings)},
		Metadata: types.PartMetadata{Stage: types.StageBeforeExtensions},
	}, newDataDir)

	r.Part(types.PartDescriptor{
		ID:        JournalPart,
		Contracts: []string{journal},
		Requires:  []types.Requirement{one(settings), one(dispatcher)},
		Metadata:  types.PartMetadata{Stage: types.StageAppLoaded},
	}, newJournal)

	frames := []struct {
		id      string
		guid    uuid.UUID
		title   string
		factory types.Factory
	}{
		{HomePart, HomeGUID, "Home", newHomeFrame},
		{SetupPart, SetupGUID, "Setup", newSetupFrame},
		{InstallPart, InstallGUID, "Install", newInstallFrame},
	}
	for i, f := range frames {
		r.Part(types.PartDescriptor{
			ID:        f.id,
			Contracts: []string{frame},
			Requires:  []types.Requirement{one(settings)},
			Metadata: types.PartMetadata{
				GUID:  f.guid.String(),
				Order: float64(i + 1),
				Extra: map[string]string{"title": f.title},
			},
		}, f.factory)
	}

	r.Part(types.PartDescriptor{
		ID:        SetupGuardPart,
		Contracts: []string{guard},
		Requires:  []types.Requirement{one(settings), one(navigator)},
		Metadata:  types.PartMetadata{GUID: SetupGUID.String()},
	}, newSetupGuard)

	// Handlers registered later get first refusal, so the fallback sorts first
	r.Part(types.PartDescriptor{
		ID:        LaunchHandlerPart,
		Contracts: []string{handler},
		Requires:  []types.Requirement{one(navigator)},
		Metadata:  types.PartMetadata{Order: 0, GUID: LaunchHandlerGUID.String()},
	}, newLaunchHandler)

	r.Part(types.PartDescriptor{
		ID:        ArchiveHandlerPart,
		Contracts: []string{handler},
		Requires:  []types.Requirement{one(navigator)},
		Metadata:  types.PartMetadata{Order: 100, GUID: ArchiveHandlerGUID.String()},
	}, newArchiveHandler)
}
