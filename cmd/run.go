package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/spigell/quickapply/internal/browser"
	"github.com/spigell/quickapply/internal/discovery"
	"github.com/spigell/quickapply/internal/filtering"
	"github.com/spigell/quickapply/internal/history"
	"github.com/spigell/quickapply/internal/jobs"
	"github.com/spigell/quickapply/internal/logger"
	"github.com/spigell/quickapply/internal/matching"
	"github.com/spigell/quickapply/internal/matching/gemini"
	"github.com/spigell/quickapply/internal/observer"
	"github.com/spigell/quickapply/internal/portal"
	"github.com/spigell/quickapply/internal/report"
	"github.com/spigell/quickapply/internal/resume"
	"github.com/spigell/quickapply/internal/runner"
	"github.com/spigell/quickapply/internal/secrets"
	"github.com/spigell/quickapply/internal/wizard"
)

const (
	PromptYes               = "Yes"
	PromptNo                = "No"
	PromptReportByCompanies = "Report by companies"
	PromptListingsToFile    = "Dump jobs to file"
)

var prompt = promptui.Select{
	Label: "Apply to these jobs?",
	Items: []string{PromptYes, PromptNo, PromptReportByCompanies, PromptListingsToFile},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Log in, search, score and apply to quick apply jobs",
	Run: func(cmd *cobra.Command, _ []string) {
		if err := run(cmd); err != nil {
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolP("do-not-exclude-applied", "f", false, "do not exclude jobs already applied to in earlier runs")
	runCmd.Flags().BoolP("auto-approve", "y", false, "do not ask for confirmation before applying")
	runCmd.Flags().Bool("progress", false, "print compact progress lines with run statistics instead of the regular log")
	runCmd.Flags().StringP("exclude-file", "e", "", "special file with jobs to exclude. Default is unset.")
	runCmd.Flags().StringP("resume", "r", "", "resume document (.txt, .md, .pdf, .docx) used to score jobs")
	runCmd.Flags().StringP("keywords", "k", "", "search keywords")
	runCmd.Flags().StringP("location", "l", "", "search location")
	runCmd.Flags().Int("max-applications", 0, "maximum number of applications to submit")

	viper.BindPFlag("do-not-exclude-applied", runCmd.Flags().Lookup("do-not-exclude-applied"))
	viper.BindPFlag("auto-approve", runCmd.Flags().Lookup("auto-approve"))
	viper.BindPFlag("progress", runCmd.Flags().Lookup("progress"))
	viper.BindPFlag("exclude-file", runCmd.Flags().Lookup("exclude-file"))
	viper.BindPFlag("resume", runCmd.Flags().Lookup("resume"))
	viper.BindPFlag("search.keywords", runCmd.Flags().Lookup("keywords"))
	viper.BindPFlag("search.location", runCmd.Flags().Lookup("location"))
	viper.BindPFlag("apply.max-applications", runCmd.Flags().Lookup("max-applications"))
}

// run is the main command for the cli. Every error is logged before it is
// returned so the caller only has to exit.
func run(cmd *cobra.Command) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "creating a logger: %s\n", err)
		return err
	}

	var obs observer.Observer
	if viper.GetBool("progress") {
		level := zapcore.InfoLevel
		if viper.GetBool("debug") {
			level = zapcore.DebugLevel
		}

		queue := observer.NewQueue(0)
		done := make(chan struct{})
		go func() {
			defer close(done)
			printProgress(cmd.ErrOrStderr(), queue)
		}()
		defer func() {
			cancel()
			queue.Close()
			<-done
		}()

		log = logger.WithObserver(zap.NewNop(), queue, level)
		obs = queue
	}

	config, err := getConfig()
	if err != nil {
		log.Error("getting a config", zap.Error(err))
		return err
	}

	log.Info("starting the quickapply", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	log.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	var profile *resume.Profile
	if config.Resume != "" {
		profile, err = resume.ParseFile(config.Resume)
		if err != nil {
			log.Error("parsing resume", zap.String("path", config.Resume), zap.Error(err))
			return err
		}
		log.Info("resume analyzed",
			zap.Int("skills", profile.SkillCount()),
			zap.String("experience_level", profile.ExperienceLevel),
			zap.Int("years_experience", profile.YearsExperience),
		)
	} else {
		log.Warn("no resume configured, jobs will not be scored")
	}

	var matcher matching.Matcher
	if profile != nil {
		matcher, err = newMatcher(ctx, config, log)
		if err != nil {
			log.Error("building matcher", zap.Error(err))
			return err
		}
	}

	var store *history.Store
	if config.HistoryFile != "" {
		store, err = history.Open(config.HistoryFile)
		if err != nil {
			log.Error("opening history", zap.Error(err))
			return err
		}
		defer store.Close()
	}

	creds, err := secrets.LoadCredentials(
		secrets.Source{Name: "identity", Value: config.Identity},
		secrets.Source{Name: "password", Value: config.Secret, File: config.SecretFile},
		askCredential,
	)
	if err != nil {
		log.Error(
			"loading credentials",
			zap.Error(err),
			zap.String("hint", "set QUICKAPPLY_IDENTITY and QUICKAPPLY_SECRET (or QUICKAPPLY_SECRET_FILE) in the environment or .env"),
		)
		return err
	}

	session, err := browser.Launch(ctx, browser.Config{
		RemoteURL: config.Browser.RemoteURL,
		Headless:  config.Browser.Headless,
		Timeout:   config.Browser.Timeout,
	}, log)
	if err != nil {
		log.Error("starting the browser", zap.Error(err))
		return err
	}
	defer func() {
		if err := session.Close(); err != nil {
			log.Warn("closing the browser", zap.Error(err))
		}
	}()

	r := runner.New(runner.Config{
		Keywords:          config.Search.Keywords,
		Location:          config.Search.Location,
		MaxApplications:   config.Apply.MaxApplications,
		Delay:             config.Apply.Delay,
		ExcludeUnsuitable: config.Apply.ExcludeUnsuitable,
		ExcludeFile:       config.ExcludeFile,
	}, runner.Deps{
		Driver: session,
		Site: portal.New(portal.Config{
			Site:      config.Site,
			Selectors: config.Selectors.Portal,
			Timeout:   config.Browser.Timeout,
			Settle:    config.Browser.Settle,
		}, session, log),
		Lister: discovery.New(discovery.Config{
			Selectors:   config.Selectors.Discovery,
			ScrollPause: config.Browser.ScrollPause,
			MaxRounds:   config.Browser.MaxScrollRounds,
		}, log),
		Applier: wizard.New(wizard.Config{
			Selectors: config.Selectors.Wizard,
			Settle:    config.Browser.Settle,
		}, log),
		Filters:  prepareFilters(config, store, log),
		Matcher:  matcher,
		Profile:  profile,
		History:  historyRecorder(store),
		Approve:  approval(log),
		Observer: obs,
		Logger:   log,
	})

	stopOnSignal(ctx, cancel, r, log)

	rep, runErr := r.Run(ctx, creds)

	files, err := report.Write(rep, config.Report.Dir, config.Report.Format)
	if err != nil {
		log.Error("writing report", zap.Error(err))
	} else {
		log.Info("report saved", zap.String("filename", files.Summary), zap.String("manual_review", files.ManualReview))
	}
	report.PrintSummary(cmd.OutOrStdout(), rep)

	if runErr != nil {
		log.Error("run failed", zap.Error(runErr))
		return runErr
	}
	return nil
}

// stopOnSignal turns the first interrupt into an advisory stop and the second
// into a cancellation of the run context.
func stopOnSignal(ctx context.Context, cancel context.CancelFunc, r *runner.Runner, log *zap.Logger) {
	sig := make(chan os.Signal, 2)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sig)

		select {
		case <-sig:
			log.Warn("stop requested, finishing the current application (interrupt again to abort)")
			r.Stop()
		case <-ctx.Done():
			return
		}

		select {
		case <-sig:
			log.Warn("aborting the run")
			cancel()
		case <-ctx.Done():
		}
	}()
}

func approval(log *zap.Logger) runner.ApproveFunc {
	if viper.GetBool("auto-approve") {
		return nil
	}

	return func(_ context.Context, quick *jobs.Listings) (bool, error) {
		for {
			log.Info("current list of quick apply jobs", zap.Int("count", quick.Len()))

			_, action, err := prompt.Run()
			if err != nil {
				return false, err
			}

			switch action {
			case PromptYes:
				return true, nil
			case PromptNo:
				log.Info("not applying", zap.String("reason", "got no from prompt"))
				return false, nil
			case PromptReportByCompanies:
				pretty, _ := json.MarshalIndent(quick.ReportByCompany(), "", "  ")
				log.Info(string(pretty), zap.Int("jobs count", quick.Len()))
			case PromptListingsToFile:
				filename, err := quick.DumpToTmpFile()
				if err != nil {
					return false, fmt.Errorf("dump results to file: %w", err)
				}
				log.Info("dumping result to file", zap.String("filename", filename))
			default:
				return false, fmt.Errorf("invalid action: %s", action)
			}
		}
	}
}

func askCredential(label string, masked bool) (string, error) {
	p := promptui.Prompt{
		Label: label,
		Validate: func(s string) error {
			if strings.TrimSpace(s) == "" {
				return errors.New("must not be empty")
			}
			return nil
		},
	}
	if masked {
		p.Mask = '*'
	}
	return p.Run()
}

func newMatcher(ctx context.Context, config *Config, log *zap.Logger) (matching.Matcher, error) {
	minScore := config.Apply.MinScore

	switch strings.ToLower(strings.TrimSpace(config.Matching.Provider)) {
	case "", "tfidf":
		return matching.NewScorer(minScore, log.With(zap.String("provider", "tfidf"))), nil
	case "gemini":
		gcfg := config.Matching.Gemini
		apiKey, err := secrets.Load(secrets.Source{
			Name: "gemini api key",
			File: gcfg.APIKeyFile,
			Env:  "GEMINI_API_KEY",
		})
		if err != nil {
			return nil, fmt.Errorf("%w (set matching.gemini.api-key-file, GEMINI_API_KEY_FILE or GEMINI_API_KEY)", err)
		}

		generator, err := gemini.NewGenerator(ctx, apiKey, gcfg.Model)
		if err != nil {
			return nil, err
		}

		matcherLogger := log.With(
			zap.String("provider", "gemini"),
			zap.String("model", generator.Model()),
			zap.Float64("min_score", minScore),
		)
		return gemini.NewMatcher(generator, matcherLogger, minScore, gcfg.MaxLogLength), nil
	default:
		return nil, fmt.Errorf("unsupported matching provider: %s", config.Matching.Provider)
	}
}

func prepareFilters(config *Config, store *history.Store, log *zap.Logger) *filtering.Filtering {
	steps := make([]filtering.Filter, 0, 3)

	if store != nil {
		steps = append(steps, filtering.NewAppliedHistory(
			&filtering.AppliedHistoryConfig{Ignore: viper.GetBool("do-not-exclude-applied")},
			&filtering.AppliedHistoryDeps{History: store, Logger: log},
		))
	}

	steps = append(steps,
		filtering.NewExcludedCompanies(config.Exclude.Companies, log),
		filtering.NewExcludeFile(config.ExcludeFile, log),
	)

	filters := filtering.New(steps, log)
	if strings.TrimSpace(config.ExcludeFile) == "" {
		filters.DisableByName("exclude_file", "exclude-file is not set")
	}
	if len(config.Exclude.Companies) == 0 {
		filters.DisableByName("companies", "no companies configured")
	}
	log.Debug("filters prepared", zap.Any("filters", filters.Describe()))

	return filters
}

// historyRecorder keeps a nil store from becoming a non-nil interface.
func historyRecorder(store *history.Store) runner.Recorder {
	if store == nil {
		return nil
	}
	return store
}

func printProgress(w io.Writer, q *observer.Queue) {
	for m := range q.Messages() {
		switch m.Kind {
		case observer.KindStats:
			s := m.Stats
			fmt.Fprintf(w, "[found %d | quick %d | manual %d | applied %d | failed %d | suitable %d]\n",
				s.Discovered, s.QuickApply, s.Manual, s.Applied, s.Failed, s.Suitable)
		case observer.KindLog:
			fmt.Fprintln(w, m.Line)
		}
	}
	if dropped := q.Dropped(); dropped > 0 {
		fmt.Fprintf(w, "%d progress messages dropped\n", dropped)
	}
}
