package main

import (
	"embed"
	"fmt"
	"os"

	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/menu"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"
	"github.com/wailsapp/wails/v2/pkg/options/mac"

	genesisApp "genesis/internal/app"
	"genesis/internal/config"
)

//go:embed all:frontend/dist
var assets embed.FS

func main() {
	// `genesis-desktop mcp` serves the running session to an agent over stdio.
	if len(os.Args) > 1 && os.Args[1] == "mcp" {
		cfg, err := config.Load(config.DefaultDir())
		if err == nil {
			err = genesisApp.ServeMCP(cfg)
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			os.Exit(1)
		}
		return
	}

	app := genesisApp.New()

	// macOS needs an Edit menu for Cmd+C/V/X/A to reach the WebView
	appMenu := menu.NewMenu()
	appMenu.Append(menu.EditMenu())

	err := wails.Run(&options.App{
		Title:     "Genesis",
		Width:     1280,
		Height:    860,
		MinWidth:  800,
		MinHeight: 600,
		AssetServer: &assetserver.Options{
			Assets: assets,
			// Ephemeral image handles are served from memory.
			Handler: app.ImageHandler(),
		},
		BackgroundColour: &options.RGBA{R: 250, G: 250, B: 252, A: 1},
		Menu:             appMenu,
		OnStartup:        app.Startup,
		OnShutdown:       app.Shutdown,
		Bind: []interface{}{
			app,
		},
		Mac: &mac.Options{
			TitleBar: &mac.TitleBar{
				TitlebarAppearsTransparent: true,
				HideTitle:                  true,
				HideTitleBar:               false,
				FullSizeContent:            true,
				UseToolbar:                 true,
				HideToolbarSeparator:       true,
			},
			About: &mac.AboutInfo{
				Title:   "Genesis",
				Message: "Block page builder with static site export",
			},
		},
	})

	if err != nil {
		println("Error:", err.Error())
	}
}
