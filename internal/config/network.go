package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"trainquery/internal/network"
	"trainquery/internal/timeutil"
)

// NetworkFile is the YAML form of a network.
type NetworkFile struct {
	Name       string          `yaml:"name" validate:"required"`
	Timezone   string          `yaml:"timezone" validate:"required"`
	Stops      []StopFile      `yaml:"stops" validate:"required,min=1,dive"`
	Lines      []LineFile      `yaml:"lines" validate:"required,min=1,dive"`
	Feeds      []FeedFile      `yaml:"feeds" validate:"dive"`
	Timetables []TimetableFile `yaml:"timetables" validate:"dive"`
}

type StopFile struct {
	ID   int    `yaml:"id" validate:"gt=0"`
	Name string `yaml:"name" validate:"required"`
}

type LineFile struct {
	ID            int                `yaml:"id" validate:"gt=0"`
	Name          string             `yaml:"name" validate:"required"`
	Code          string             `yaml:"code"`
	Route         RouteFile          `yaml:"route"`
	Continuations []ContinuationFile `yaml:"continuations" validate:"dive"`
}

// RouteFile holds either a linear route (Stops) or a y-branch route
// (FirstBranch, SecondBranch, Shared), chosen by Type.
type RouteFile struct {
	Type         string          `yaml:"type" validate:"required,oneof=linear y-branch"`
	Variant      string          `yaml:"variant"`
	Forward      DirectionFile   `yaml:"forward"`
	Reverse      DirectionFile   `yaml:"reverse"`
	Stops        []RouteStopFile `yaml:"stops" validate:"required_if=Type linear,dive"`
	FirstBranch  *BranchFile     `yaml:"firstBranch" validate:"required_if=Type y-branch"`
	SecondBranch *BranchFile     `yaml:"secondBranch" validate:"required_if=Type y-branch"`
	Shared       []RouteStopFile `yaml:"shared" validate:"dive"`
}

type DirectionFile struct {
	ID   string `yaml:"id" validate:"required"`
	Name string `yaml:"name" validate:"required"`
}

type BranchFile struct {
	ID    string          `yaml:"id" validate:"required"`
	Stops []RouteStopFile `yaml:"stops" validate:"required,min=1,dive"`
}

// RouteStopFile is written either as a bare stop ID or as
// {stop: 9, via: true}.
type RouteStopFile struct {
	Stop int  `yaml:"stop" validate:"gt=0"`
	Via  bool `yaml:"via"`
}

func (r *RouteStopFile) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		return node.Decode(&r.Stop)
	}
	type plain RouteStopFile
	return node.Decode((*plain)(r))
}

type ContinuationFile struct {
	Variant   string       `yaml:"variant"`
	Direction string       `yaml:"direction" validate:"required"`
	Options   []OptionFile `yaml:"options" validate:"required,min=1,dive"`
}

type OptionFile struct {
	Line      int    `yaml:"line" validate:"gt=0"`
	Variant   string `yaml:"variant"`
	Direction string `yaml:"direction" validate:"required"`
}

type FeedFile struct {
	Name    string              `yaml:"name" validate:"required,excludesall=/"`
	URL     string              `yaml:"url" validate:"required"`
	StopIDs map[string]int      `yaml:"stopIDs"`
	Vetoes  map[string][]string `yaml:"vetoes"`
}

type TimetableFile struct {
	ID      string               `yaml:"id" validate:"required"`
	Line    int                  `yaml:"line" validate:"gt=0"`
	Begins  string               `yaml:"begins"`
	Ends    string               `yaml:"ends"`
	Entries []TimetableEntryFile `yaml:"entries" validate:"required,min=1,dive"`
}

// TimetableEntryFile lists one time per stop, space separated, with "-"
// for stops the service skips: "08:00 08:05 - 08:15".
type TimetableEntryFile struct {
	Variant   string `yaml:"variant"`
	Direction string `yaml:"direction" validate:"required"`
	Weekdays  string `yaml:"weekdays" validate:"required,len=7"`
	Times     string `yaml:"times" validate:"required"`
}

// LoadNetwork reads, validates and builds the network at path.
func LoadNetwork(path string) (*network.Network, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read network config: %w", err)
	}
	net, err := ParseNetwork(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return net, nil
}

// ParseNetwork decodes and validates YAML network config. Unknown keys are
// rejected.
func ParseNetwork(data []byte) (*network.Network, error) {
	var file NetworkFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("parse network config: %w", err)
	}

	v := validator.New()
	if err := v.Struct(file); err != nil {
		return nil, fmt.Errorf("validate network config: %w", err)
	}
	return file.Build()
}

// Build converts the file into a network.
func (f *NetworkFile) Build() (*network.Network, error) {
	tz, err := time.LoadLocation(f.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone: %w", err)
	}

	stops := make([]network.Stop, len(f.Stops))
	for i, s := range f.Stops {
		stops[i] = network.Stop{ID: network.StopID(s.ID), Name: s.Name}
	}

	lines := make([]*network.Line, len(f.Lines))
	for i, l := range f.Lines {
		line := &network.Line{
			ID:    network.LineID(l.ID),
			Name:  l.Name,
			Code:  l.Code,
			Route: l.Route.build(),
		}
		for _, c := range l.Continuations {
			rule := network.ContinuationRule{
				Variant:   variant(c.Variant),
				Direction: network.DirectionID(c.Direction),
			}
			for _, o := range c.Options {
				rule.Options = append(rule.Options, network.ContinuationOption{
					Line:      network.LineID(o.Line),
					Variant:   variant(o.Variant),
					Direction: network.DirectionID(o.Direction),
				})
			}
			line.Continuations = append(line.Continuations, rule)
		}
		lines[i] = line
	}

	net, err := network.New(f.Name, tz, stops, lines)
	if err != nil {
		return nil, err
	}

	for _, feed := range f.Feeds {
		cfg := network.FeedConfig{Name: feed.Name, URL: feed.URL, Vetoes: feed.Vetoes}
		if len(feed.StopIDs) > 0 {
			cfg.StopIDs = make(map[string]network.StopID, len(feed.StopIDs))
			for k, v := range feed.StopIDs {
				cfg.StopIDs[k] = network.StopID(v)
			}
		}
		net.Feeds = append(net.Feeds, cfg)
	}

	for _, t := range f.Timetables {
		st, err := t.build()
		if err != nil {
			return nil, fmt.Errorf("timetable %s: %w", t.ID, err)
		}
		net.Timetables = append(net.Timetables, st)
	}
	return net, nil
}

func (r RouteFile) build() network.Route {
	forward := network.DirectionDefinition{ID: network.DirectionID(r.Forward.ID), Name: r.Forward.Name}
	reverse := network.DirectionDefinition{ID: network.DirectionID(r.Reverse.ID), Name: r.Reverse.Name}
	if r.Type == "y-branch" {
		return &network.YBranchRoute{
			Forward:      forward,
			Reverse:      reverse,
			FirstBranch:  network.Branch{ID: network.RouteVariantID(r.FirstBranch.ID), Stops: routeStops(r.FirstBranch.Stops)},
			SecondBranch: network.Branch{ID: network.RouteVariantID(r.SecondBranch.ID), Stops: routeStops(r.SecondBranch.Stops)},
			Shared:       routeStops(r.Shared),
		}
	}
	return &network.LinearRoute{
		Variant: variant(r.Variant),
		Forward: forward,
		Reverse: reverse,
		Stops:   routeStops(r.Stops),
	}
}

func (t TimetableFile) build() (network.StaticTimetable, error) {
	st := network.StaticTimetable{ID: t.ID, Line: network.LineID(t.Line)}
	var err error
	if t.Begins != "" {
		if st.Begins, err = timeutil.ParseDate(t.Begins); err != nil {
			return st, fmt.Errorf("begins: %w", err)
		}
	}
	if t.Ends != "" {
		if st.Ends, err = timeutil.ParseDate(t.Ends); err != nil {
			return st, fmt.Errorf("ends: %w", err)
		}
	}
	for i, e := range t.Entries {
		weekdays, err := timeutil.ParseWeekdayRange(e.Weekdays)
		if err != nil {
			return st, fmt.Errorf("entry %d: %w", i, err)
		}
		times, err := timeutil.ParseNullTimes(strings.Fields(e.Times))
		if err != nil {
			return st, fmt.Errorf("entry %d: %w", i, err)
		}
		st.Entries = append(st.Entries, network.StaticEntry{
			Variant:   variant(e.Variant),
			Direction: network.DirectionID(e.Direction),
			Weekdays:  weekdays,
			Times:     times,
		})
	}
	return st, nil
}

func routeStops(in []RouteStopFile) []network.RouteStop {
	out := make([]network.RouteStop, len(in))
	for i, s := range in {
		out[i] = network.RouteStop{Stop: network.StopID(s.Stop), Via: s.Via}
	}
	return out
}

// variant defaults an omitted variant to the linear route default.
func variant(v string) network.RouteVariantID {
	if v == "" {
		return network.DefaultVariant
	}
	return network.RouteVariantID(v)
}
