package cli

import (
	"bufio"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/ishaan812/treeqa/internal/cache"
	"github.com/ishaan812/treeqa/internal/config"
	"github.com/ishaan812/treeqa/internal/constants"
)

var configureLegacy bool

var errConfigureCanceled = errors.New("configuration canceled")

var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Configure treeqa settings",
	Long: `Configure the completion provider, embedding provider, API keys,
context window and response cache.

Settings are written to ~/.treeqa/config.yaml (or --config). Every key can
also be overridden with a TREEQA_ environment variable, for example
TREEQA_CRAWL_WORKERS=4.

Examples:
  treeqa configure              # Interactive prompts
  treeqa configure --legacy     # Plain line-based prompts`,
	Args: cobra.NoArgs,
	RunE: runConfigure,
}

func init() {
	rootCmd.AddCommand(configureCmd)
	configureCmd.Flags().BoolVar(&configureLegacy, "legacy", false, "Use plain line-based prompts")
}

type choice struct {
	Name        string
	Description string
}

// asker is how configure talks to the user.
type asker interface {
	choose(label string, items []choice, current string) (string, error)
	input(label, current string, secret bool, validate func(string) error) (string, error)
}

func runConfigure(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		VerboseLog("Starting from defaults: %v", err)
		cfg, err = config.LoadFrom(os.DevNull)
		if err != nil {
			return err
		}
	}

	var a asker = promptAsker{}
	if configureLegacy || !term.IsTerminal(int(os.Stdin.Fd())) {
		a = &lineAsker{reader: bufio.NewReader(os.Stdin)}
	}

	fmt.Println()
	titleColor.Println("treeqa Configuration")
	dimColor.Printf("%s\n\n", config.GetConfigPath())

	if err := configureSettings(cfg, a); err != nil {
		if errors.Is(err, errConfigureCanceled) {
			fmt.Println()
			infoColor.Println("Configuration canceled. Changes not saved.")
			return nil
		}
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if ok, msg := checkProvider(cfg); ok {
		successColor.Printf("\n%s\n", msg)
	} else {
		warnColor.Printf("\n%s\n", msg)
	}

	if err := os.MkdirAll(config.GetTreeqaDir(), 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", config.GetTreeqaDir(), err)
	}
	if err := cfg.Save(); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	successColor.Println("Configuration saved successfully!")
	displayCurrentSettings(cfg)
	return nil
}

func configureSettings(cfg *config.Config, a asker) error {
	var providers []choice
	for _, p := range constants.LLMProviders() {
		providers = append(providers, choice{string(p.Name), p.Description})
	}
	p, err := a.choose("LLM provider", providers, cfg.Provider)
	if err != nil {
		return err
	}
	if p != cfg.Provider {
		cfg.Provider = p
		cfg.Model = ""
		cfg.BaseURL = ""
	}

	m, err := chooseModel(a, "Model", constants.GetLLMModels(constants.Provider(p)), cfg.LLMModel())
	if err != nil {
		return err
	}
	cfg.Model = m

	if err := configureCredentials(cfg, a, p); err != nil {
		return err
	}

	embedChoices := []choice{{"same", "Use the LLM provider when it supports embeddings"}}
	for _, ep := range constants.EmbeddingProviders() {
		embedChoices = append(embedChoices, choice{string(ep.Name), ep.Description})
	}
	current := cfg.Embedding.Provider
	if current == "" {
		current = "same"
	}
	ep, err := a.choose("Embedding provider", embedChoices, current)
	if err != nil {
		return err
	}
	if ep == "same" {
		ep = ""
	}
	if ep != cfg.Embedding.Provider {
		cfg.Embedding.Provider = ep
		cfg.Embedding.Model = ""
	}
	embedProvider := cfg.EmbeddingProvider()
	em, err := chooseModel(a, "Embedding model", constants.GetEmbeddingModels(constants.Provider(embedProvider)), cfg.EmbeddingModel())
	if err != nil {
		return err
	}
	cfg.Embedding.Model = em
	if embedProvider != p {
		if err := configureCredentials(cfg, a, embedProvider); err != nil {
			return err
		}
	}

	window, err := a.input("Context window (tokens)", strconv.Itoa(cfg.ContextWindow), false, positiveInt)
	if err != nil {
		return err
	}
	cfg.ContextWindow, _ = strconv.Atoi(window)

	maxOut, err := a.input("Max output tokens", strconv.Itoa(cfg.MaxOutputTokens), false, func(s string) error {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil || n < 0 || n >= cfg.ContextWindow {
			return fmt.Errorf("must be between 0 and %d", cfg.ContextWindow-1)
		}
		return nil
	})
	if err != nil {
		return err
	}
	cfg.MaxOutputTokens, _ = strconv.Atoi(maxOut)

	backend, err := a.choose("Response cache", []choice{
		{cache.BackendFile, "JSON file, shared between runs"},
		{cache.BackendSQLite, "SQLite database, better for large trees"},
		{cache.BackendMemory, "In memory only, nothing persisted"},
	}, cfg.Cache.Backend)
	if err != nil {
		return err
	}
	if backend != cfg.Cache.Backend {
		cfg.Cache.Backend = backend
		cfg.Cache.Path = ""
	}
	return nil
}

func chooseModel(a asker, label string, options []constants.ModelOption, current string) (string, error) {
	if len(options) == 0 {
		return a.input(label, current, false, nonEmpty)
	}
	items := make([]choice, 0, len(options)+1)
	known := false
	for _, o := range options {
		items = append(items, choice{o.Model, o.Description})
		known = known || o.Model == current
	}
	const other = "other"
	items = append(items, choice{other, "Type a model name"})
	sel := current
	if !known {
		sel = other
	}
	picked, err := a.choose(label, items, sel)
	if err != nil || picked != other {
		return picked, err
	}
	def := current
	if known {
		def = ""
	}
	return a.input(label+" name", def, false, nonEmpty)
}

func configureCredentials(cfg *config.Config, a asker, provider string) error {
	p := constants.Provider(provider)
	setup := constants.GetProviderSetupInfo(p)
	if setup.SetupHint != "" {
		dimColor.Printf("  %s\n", setup.SetupHint)
	}

	switch p {
	case constants.ProviderOllama:
		url := cfg.BaseURL
		if url == "" {
			url = constants.GetDefaultBaseURL(p)
		}
		v, err := a.input("Ollama URL", url, false, nonEmpty)
		if err != nil {
			return err
		}
		if v != constants.GetDefaultBaseURL(p) {
			cfg.BaseURL = v
		}
		return nil
	case constants.ProviderBedrock:
		id, err := a.input("AWS access key ID", cfg.AWSAccessKeyID, false, nonEmpty)
		if err != nil {
			return err
		}
		secret, err := a.input("AWS secret access key", cfg.AWSSecretAccessKey, true, nonEmpty)
		if err != nil {
			return err
		}
		region, err := a.input("AWS region", cfg.AWSRegion, false, nonEmpty)
		if err != nil {
			return err
		}
		cfg.AWSAccessKeyID, cfg.AWSSecretAccessKey, cfg.AWSRegion = id, secret, region
		return nil
	}

	if !setup.NeedsAPIKey {
		return nil
	}
	existing := cfg.GetAPIKey(provider)
	label := fmt.Sprintf("%s API key", provider)
	if existing != "" {
		label += fmt.Sprintf(" [%s, enter to keep]", maskKey(existing))
	} else if setup.APIKeyEnv != "" {
		label += fmt.Sprintf(" (or set %s)", setup.APIKeyEnv)
	}
	key, err := a.input(label, "", true, nil)
	if err != nil {
		return err
	}
	if key = strings.TrimSpace(key); key != "" {
		cfg.SetAPIKey(provider, key)
	}
	return nil
}

// checkProvider makes a quick reachability check for local providers and a
// presence check for API keys.
func checkProvider(cfg *config.Config) (bool, string) {
	p := constants.Provider(cfg.Provider)
	if p == constants.ProviderOllama {
		url := cfg.BaseURL
		if url == "" {
			url = constants.GetDefaultBaseURL(p)
		}
		client := &http.Client{Timeout: 5 * time.Second}
		resp, err := client.Get(url + "/api/tags")
		if err != nil {
			return false, "Cannot connect to Ollama. Is it running? (ollama serve)"
		}
		defer resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			return true, "Connected to Ollama!"
		}
		return false, fmt.Sprintf("Ollama returned status %d", resp.StatusCode)
	}
	if !cfg.HasProvider(cfg.Provider) {
		return false, fmt.Sprintf("No credentials for %s yet; requests will fail until one is set.", cfg.Provider)
	}
	return true, fmt.Sprintf("Credentials found for %s.", cfg.Provider)
}

func displayCurrentSettings(cfg *config.Config) {
	fmt.Println()
	titleColor.Println("Current Settings:")
	dimColor.Println(strings.Repeat("─", 40))
	infoColor.Printf("  LLM:        %s/%s\n", cfg.Provider, cfg.LLMModel())
	if key := cfg.GetAPIKey(cfg.Provider); key != "" {
		dimColor.Printf("  API key:    %s\n", maskKey(key))
	}
	infoColor.Printf("  Embeddings: %s/%s\n", cfg.EmbeddingProvider(), cfg.EmbeddingModel())
	dimColor.Printf("  Budget:     %d tokens, %d reserved for output\n", cfg.ContextWindow, cfg.MaxOutputTokens)
	dimColor.Printf("  Cache:      %s (%s)\n", cfg.Cache.Backend, cfg.CachePath())
	fmt.Println()
}

func maskKey(key string) string {
	if len(key) <= 8 {
		return "***"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

func nonEmpty(s string) error {
	if strings.TrimSpace(s) == "" {
		return errors.New("value is required")
	}
	return nil
}

func positiveInt(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return errors.New("must be a positive number")
	}
	return nil
}

type promptAsker struct{}

func (promptAsker) choose(label string, items []choice, current string) (string, error) {
	cursor := 0
	for i, it := range items {
		if it.Name == current {
			cursor = i
		}
	}
	sel := promptui.Select{
		Label:     label,
		Items:     items,
		CursorPos: cursor,
		Size:      min(len(items), 10),
		Templates: &promptui.SelectTemplates{
			Label:    "{{ . }}",
			Active:   "▸ {{ .Name | cyan }} {{ .Description | faint }}",
			Inactive: "  {{ .Name }} {{ .Description | faint }}",
			Selected: "✔ " + label + ": {{ .Name | green }}",
		},
	}
	i, _, err := sel.Run()
	if err != nil {
		return "", promptErr(err)
	}
	return items[i].Name, nil
}

func (promptAsker) input(label, current string, secret bool, validate func(string) error) (string, error) {
	prompt := promptui.Prompt{
		Label:   label,
		Default: current,
	}
	if validate != nil {
		prompt.Validate = validate
	}
	if secret {
		prompt.Mask = '*'
		prompt.Default = ""
		if current != "" && validate != nil {
			// Empty input keeps the current secret.
			prompt.Validate = func(s string) error {
				if s == "" {
					return nil
				}
				return validate(s)
			}
		}
	}
	v, err := prompt.Run()
	if err != nil {
		return "", promptErr(err)
	}
	if v == "" && secret {
		return current, nil
	}
	return strings.TrimSpace(v), nil
}

func promptErr(err error) error {
	if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) || errors.Is(err, promptui.ErrAbort) {
		return errConfigureCanceled
	}
	return err
}

// lineAsker reads plain lines, for pipes and dumb terminals.
type lineAsker struct {
	reader *bufio.Reader
}

func (l *lineAsker) readLine() (string, error) {
	s, err := l.reader.ReadString('\n')
	if err != nil && s == "" {
		return "", errConfigureCanceled
	}
	return strings.TrimSpace(s), nil
}

func (l *lineAsker) choose(label string, items []choice, current string) (string, error) {
	fmt.Println()
	titleColor.Println(label)
	for i, it := range items {
		marker := " "
		if it.Name == current {
			marker = "*"
		}
		warnColor.Printf("  %s[%d] ", marker, i+1)
		infoColor.Printf("%-22s", it.Name)
		dimColor.Printf(" %s\n", it.Description)
	}
	for {
		warnColor.Print("Select option (enter keeps current): ")
		s, err := l.readLine()
		if err != nil {
			return "", err
		}
		if s == "" && current != "" {
			return current, nil
		}
		if n, err := strconv.Atoi(s); err == nil && n >= 1 && n <= len(items) {
			return items[n-1].Name, nil
		}
		for _, it := range items {
			if strings.EqualFold(it.Name, s) {
				return it.Name, nil
			}
		}
		dimColor.Println("Invalid option. Please try again.")
	}
}

func (l *lineAsker) input(label, current string, secret bool, validate func(string) error) (string, error) {
	for {
		warnColor.Print(label)
		if current != "" && !secret {
			dimColor.Printf(" [%s]", current)
		}
		warnColor.Print(": ")
		s, err := l.readLine()
		if err != nil {
			return "", err
		}
		if s == "" {
			s = current
		}
		if validate != nil {
			if err := validate(s); err != nil {
				dimColor.Printf("%v\n", err)
				continue
			}
		}
		return s, nil
	}
}
