package main

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/playperu/pacer/internal/pacer"
	"github.com/playperu/pacer/internal/recap"
	"github.com/playperu/pacer/internal/roster"
	"github.com/playperu/pacer/internal/run"
	"github.com/playperu/pacer/internal/simulate"
)

// simulateFlags are the run settings shared by simulate and gpx.
type simulateFlags struct {
	pacerIDs  []string
	vibe      string
	voiceMode string
	noMusic   bool
	noHaptics bool
	intensity string
	device    string
	beatPush  bool
	seed      uint64
}

func (f *simulateFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringSliceVarP(&f.pacerIDs, "pacers", "p", nil, "Pacer ids in rotation order (default: whole roster)")
	fs.StringVar(&f.vibe, "vibe", string(pacer.VibeFiredUp), "Vibe: cheerful, fired_up, calm, harsh_coach, angry")
	fs.StringVar(&f.voiceMode, "voice", string(pacer.VoiceModeMix), "Voice mode: real_only, ai_only, mix")
	fs.BoolVar(&f.noMusic, "no-music", false, "Disable pacer tracks")
	fs.BoolVar(&f.noHaptics, "no-haptics", false, "Disable haptic patterns")
	fs.StringVar(&f.intensity, "intensity", string(pacer.IntensityMedium), "Haptic intensity: low, medium, high")
	fs.StringVar(&f.device, "device", string(pacer.DevicePhoneOnly), "Haptic device mode: phone_only, phone_and_wearable, off")
	fs.BoolVar(&f.beatPush, "beat-push", false, "Follow each pattern with a cadence beat push")
	fs.Uint64Var(&f.seed, "seed", 1, "Random seed for line, track and tempo picks")
}

func (f *simulateFlags) config(opts *rootOptions, stderr io.Writer) (simulate.Config, error) {
	all, err := opts.loadRoster()
	if err != nil {
		return simulate.Config{}, err
	}
	selected := all
	if len(f.pacerIDs) > 0 {
		if selected, err = roster.Select(all, f.pacerIDs); err != nil {
			return simulate.Config{}, err
		}
	}

	vibe := pacer.Vibe(f.vibe)
	if !vibe.Valid() {
		return simulate.Config{}, fmt.Errorf("unknown vibe %q", f.vibe)
	}
	mode := pacer.VoiceMode(f.voiceMode)
	if !mode.Valid() {
		return simulate.Config{}, fmt.Errorf("unknown voice mode %q", f.voiceMode)
	}
	settings := pacer.HapticSettings{
		Enabled:         !f.noHaptics,
		DeviceMode:      pacer.DeviceMode(f.device),
		Intensity:       pacer.Intensity(f.intensity),
		BeatPushEnabled: f.beatPush,
	}
	if !settings.DeviceMode.Valid() {
		return simulate.Config{}, fmt.Errorf("unknown device mode %q", f.device)
	}
	if !settings.Intensity.Valid() {
		return simulate.Config{}, fmt.Errorf("unknown intensity %q", f.intensity)
	}

	logger := slog.New(slog.DiscardHandler)
	if opts.verbose {
		logger = slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	return simulate.Config{
		Options: run.Options{
			RunnerID:     "pacerctl",
			Pacers:       selected,
			VoiceMode:    mode,
			Vibe:         vibe,
			MusicEnabled: !f.noMusic,
			Haptics:      settings,
		},
		Seed:   f.seed,
		Logger: logger,
	}, nil
}

// simulationReport is the --json output of simulate.
type simulationReport struct {
	Recap      recap.Summary    `json:"recap"`
	Session    pacer.RunSession `json:"session"`
	Stats      pacer.RunStats   `json:"stats"`
	Points     int              `json:"points"`
	Utterances []run.Utterance  `json:"utterances"`
	Pulses     int              `json:"hapticPulses"`
}

func newSimulateCommand(opts *rootOptions) *cobra.Command {
	var (
		flags  simulateFlags
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Replay the demo run through the engine and print its hype moments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.config(opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			res, err := simulate.Run(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			sum := recap.Build(res.Session, res.Stats)

			if asJSON {
				return writeJSON(cmd, simulationReport{
					Recap:      sum,
					Session:    res.Session,
					Stats:      res.Stats,
					Points:     len(res.Points),
					Utterances: res.Utterances,
					Pulses:     res.Pulses,
				})
			}
			printReport(cmd.OutOrStdout(), res, sum)
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the session and recap as JSON")
	return cmd
}

func printReport(out io.Writer, res simulate.Result, sum recap.Summary) {
	colorize := shouldColorize(out)

	for _, line := range renderSectionHeader("Run", colorize) {
		fmt.Fprintln(out, line)
	}
	fmt.Fprintln(out, sum.Title)
	fmt.Fprintln(out)
	fmt.Fprintln(out, sum.Description)
	fmt.Fprintln(out)

	for _, line := range renderSectionHeader("Hype moments", colorize) {
		fmt.Fprintln(out, line)
	}
	if len(res.Session.HypeEvents) == 0 {
		fmt.Fprintln(out, "none")
	} else {
		rows := make([][]string, 0, len(res.Session.HypeEvents))
		for i, ev := range res.Session.HypeEvents {
			line := ev.GeneratedText
			if ev.MemoID != "" {
				line = fmt.Sprintf("%s (%s)", line, ev.MemoID)
			}
			track := "-"
			if ev.TrackID != "" {
				track = ev.TrackName + " - " + ev.ArtistName
			}
			rows = append(rows, []string{
				fmt.Sprint(i + 1),
				clock(ev.Timestamp.Sub(res.Session.StartTime)),
				string(ev.TriggerType),
				ev.PacerName,
				string(ev.VoiceType),
				line,
				track,
			})
		}
		fmt.Fprintln(out, renderTable(
			[]string{"#", "At", "Trigger", "Pacer", "Voice", "Line", "Track"},
			rows,
			[]columnAlignment{alignRight, alignRight},
			colorize,
		))
	}
	fmt.Fprintln(out)

	if len(sum.Tracks) > 0 {
		for _, line := range renderSectionHeader("Recap tracks", colorize) {
			fmt.Fprintln(out, line)
		}
		for _, t := range sum.Tracks {
			fmt.Fprintf(out, "%s - %s (picked by %s)\n", t.TrackName, t.ArtistName, t.PacerName)
		}
		fmt.Fprintln(out)
	}

	fmt.Fprintf(out, "%d GPS points, %d voice cues, %d haptic pulses\n", len(res.Points), len(res.Utterances), res.Pulses)
}

// clock renders d as m:ss.
func clock(d time.Duration) string {
	s := int(d.Round(time.Second).Seconds())
	return fmt.Sprintf("%d:%02d", s/60, s%60)
}
