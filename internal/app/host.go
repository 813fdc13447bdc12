package app

import (
	"github.com/GriffinCanCode/modshell/internal/domain/activation"
	"github.com/GriffinCanCode/modshell/internal/domain/catalog"
	"github.com/GriffinCanCode/modshell/internal/domain/navigation"
	"github.com/GriffinCanCode/modshell/internal/infrastructure/config"
	"github.com/GriffinCanCode/modshell/internal/shared/types"
)

// HostModule is the name of the module exposing shell services as parts
const HostModule = "host"

// Host part IDs
const (
	ConfigPart     = "host.config"
	DispatcherPart = "host.dispatcher"
	NavigatorPart  = "host.navigator"
)

// hostModule publishes objects the shell builds itself so extension parts
// can require them like any other contract
type hostModule struct {
	cfg        *config.Config
	dispatcher *activation.Dispatcher
	navigator  *navigation.Registry
}

func (hostModule) Name() string    { return HostModule }
func (hostModule) Version() string { return "1" }

func (h hostModule) Register(r *catalog.Registrar) {
	r.Part(types.PartDescriptor{
		ID:        ConfigPart,
		Contracts: []string{types.ContractOf[*config.Config]()},
	}, types.Instance(h.cfg))
	r.Part(types.PartDescriptor{
		ID:        DispatcherPart,
		Contracts: []string{types.ContractOf[*activation.Dispatcher]()},
	}, types.Instance(h.dispatcher))
	r.Part(types.PartDescriptor{
		ID:        NavigatorPart,
		Contracts: []string{types.ContractOf[*navigation.Registry]()},
	}, types.Instance(h.navigator))
}
