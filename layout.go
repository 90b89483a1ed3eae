package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"taskbar/bar"
	"taskbar/loop"
	"taskbar/shell"
)

type layoutDump struct {
	Shell         string       `yaml:"shell"`
	Anchors       string       `yaml:"anchors"`
	ExclusiveZone int          `yaml:"exclusive_zone"`
	Width         int          `yaml:"width"`
	Regions       []regionDump `yaml:"regions"`
	Frame         shell.Frame  `yaml:"frame"`
	Boxes         []boxDump    `yaml:"boxes"`
}

type regionDump struct {
	Name      string `yaml:"name"`
	Kind      string `yaml:"kind"`
	Placement string `yaml:"placement"`
}

type boxDump struct {
	Name  string `yaml:"name"`
	Text  string `yaml:"text"`
	X     int    `yaml:"x"`
	Width int    `yaml:"width"`
}

func (a *app) layoutCommand() *cobra.Command {
	var png string
	cmd := &cobra.Command{
		Use:   "layout",
		Short: "Print the composed bar as YAML",
		Long: `layout builds the bar from the current config, renders one frame
offscreen and prints the regions and their pixel boxes as YAML. With --png
the frame is also written as an image.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.layout(cmd, png)
		},
	}
	cmd.Flags().StringVar(&png, "png", "", "also write the rendered frame to this PNG file")
	return cmd
}

func (a *app) layout(cmd *cobra.Command, png string) error {
	l := loop.New(loop.Real(), a.log)
	sh := &shell.Snapshot{Path: png, Width: a.cfg.Snapshot.Width, Palette: a.palette}
	win, err := bar.Create(sh, l, a.log)
	if err != nil {
		return err
	}
	defer win.Destroy()

	row, sw, err := a.compose(l)
	if err != nil {
		return err
	}
	if sw != nil {
		a.fetchWorkspaces(sw)
	}
	if err := win.Attach(row); err != nil {
		return err
	}

	surface := win.Surface().(*shell.SnapshotSurface)
	frame := row.Frame()
	if err := surface.Present(frame); err != nil {
		return fmt.Errorf("render: %w", err)
	}

	dump := layoutDump{
		Shell:         sh.Name(),
		Anchors:       surface.Anchors().String(),
		ExclusiveZone: surface.ExclusiveZone(),
		Width:         a.cfg.Snapshot.Width,
		Frame:         frame,
	}
	for _, e := range row.Entries() {
		dump.Regions = append(dump.Regions, regionDump{
			Name:      e.Region.Name(),
			Kind:      e.Region.Kind().String(),
			Placement: e.Placement.String(),
		})
	}
	for _, b := range surface.Boxes() {
		dump.Boxes = append(dump.Boxes, boxDump{Name: b.Cell.Name, Text: b.Cell.Text, X: b.X, Width: b.Width})
	}

	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	if err := enc.Encode(dump); err != nil {
		return fmt.Errorf("encode layout: %w", err)
	}
	return enc.Close()
}
