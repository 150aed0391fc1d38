package engine

import (
	"fmt"
	"path/filepath"

	"github.com/2ykwang/mac-maintain-go/internal/cleaner"
	"github.com/2ykwang/mac-maintain-go/internal/config"
	"github.com/2ykwang/mac-maintain-go/internal/leftover"
	"github.com/2ykwang/mac-maintain-go/internal/privilege"
	"github.com/2ykwang/mac-maintain-go/internal/scanner"
	"github.com/2ykwang/mac-maintain-go/internal/target"
	"github.com/2ykwang/mac-maintain-go/internal/types"
	"github.com/2ykwang/mac-maintain-go/internal/userconfig"
	"github.com/2ykwang/mac-maintain-go/internal/utils"
)

// Setup describes the environment an Engine is built for. Zero fields take the
// current user's defaults.
type Setup struct {
	Home     string
	Catalog  *types.Config
	User     *userconfig.UserConfig
	Elevator privilege.Elevator
}

// Build loads the catalog, applies user preferences and wires every component.
func Build(s Setup) (*Engine, error) {
	home := s.Home
	if home == "" {
		home = utils.HomeDir()
	}
	if home == "" {
		return nil, fmt.Errorf("cannot determine home directory")
	}

	user := s.User
	if user == nil {
		user = userconfig.Default()
	}
	if err := user.Validate(); err != nil {
		return nil, err
	}

	base := s.Catalog
	if base == nil {
		var err error
		if base, err = config.LoadEmbedded(); err != nil {
			return nil, err
		}
	}
	merged, err := config.Merge(base, user)
	if err != nil {
		return nil, err
	}
	catalog := config.NewCatalog(merged, home)

	sc := scanner.New(scanner.Options{
		MaxItems:   user.Scan.FastMaxItems,
		YieldEvery: user.Scan.YieldEvery,
	})

	elevator := s.Elevator
	if elevator == nil {
		elevator = privilege.NewSudoElevator(passwordSource(user.PasswordPrompt))
	}
	broker := privilege.NewBroker(elevator)

	trashDir := filepath.Join(home, ".Trash")
	var trasher cleaner.Trasher = cleaner.FinderTrasher{}
	if user.TrashMethod == userconfig.TrashRename {
		trasher = cleaner.RenameTrasher{Dir: trashDir}
	}

	return New(Deps{
		Catalog:  catalog,
		Registry: target.DefaultRegistry(catalog, sc, user.Scan.Concurrency),
		Finder:   leftover.NewFinder(filepath.Join(home, "Library"), sc),
		Broker:   broker,
		Executor: cleaner.NewExecutor(catalog, broker, cleaner.Options{
			Trasher:    trasher,
			TrashDir:   trashDir,
			Scanner:    sc,
			CheckInUse: user.CheckInUse,
		}),
		Scanner:     sc,
		Concurrency: user.Scan.Concurrency,
	}), nil
}

func passwordSource(prompt string) privilege.PasswordSource {
	if prompt == userconfig.PromptTTY {
		return privilege.TTYPassword{}
	}
	return privilege.DialogPassword{}
}
