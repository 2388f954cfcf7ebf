package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/xraph/token"
	"github.com/xraph/token/notification"
	"github.com/xraph/token/types"
)

// replayEpoch is the fixed clock used for replays so output is reproducible.
var replayEpoch = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

// StepResult is the outcome of one replayed step.
type StepResult struct {
	Index   int    `json:"index"`
	Op      string `json:"op"`
	Caller  string `json:"caller"`
	Outcome string `json:"outcome"`
	Expect  string `json:"expect"`
	Match   bool   `json:"match"`
}

// AccountView is one account in the replay summary.
type AccountView struct {
	Principal string `json:"principal"`
	Balance   string `json:"balance"`
	Frozen    bool   `json:"frozen,omitempty"`
}

// NotificationView is one notification in the replay summary.
type NotificationView struct {
	Seq    uint64 `json:"seq"`
	Kind   string `json:"kind"`
	From   string `json:"from,omitempty"`
	To     string `json:"to,omitempty"`
	Value  string `json:"value,omitempty"`
	Target string `json:"target,omitempty"`
	Frozen bool   `json:"frozen,omitempty"`
}

// ReplayResult summarizes a scenario replay.
type ReplayResult struct {
	Scenario      string             `json:"scenario"`
	Name          string             `json:"name"`
	Symbol        string             `json:"symbol"`
	Decimals      uint8              `json:"decimals"`
	TotalSupply   string             `json:"total_supply"`
	Owner         string             `json:"owner"`
	SellPrice     string             `json:"sell_price"`
	BuyPrice      string             `json:"buy_price"`
	Steps         []StepResult       `json:"steps"`
	Accounts      []AccountView      `json:"accounts"`
	Notifications []NotificationView `json:"notifications"`
	Audit         string             `json:"audit"`
	Mismatches    int                `json:"mismatches"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "replay <scenario.yaml>",
		Short: "Replay a scenario against a fresh ledger",
		Long: `Build a ledger from the scenario genesis, apply every step in order and
print each outcome, the final accounts and the notification log.

Exits with code 1 when any step outcome differs from its expect field.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(cmd.Context(), rootOpts, args[0], cmd)
		},
	}
}

func runReplay(ctx context.Context, opts *RootOptions, path string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	scenario, err := LoadScenario(path)
	if err != nil {
		_ = formatter.Error(ErrCodeLoad, err.Error(), nil)
		return WrapExitError(ExitCommandError, "load scenario", err)
	}
	scenario.ApplyEnvOverrides()

	if errs := scenario.Validate(); len(errs) > 0 {
		_ = formatter.Error(ErrCodeInvalid, errs[0].String(), ValidationResult{Steps: len(scenario.Steps), Errors: errs})
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if opts.Verbose {
		logger = slog.New(slog.NewTextHandler(formatter.errWriter(), &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	result, err := Replay(ctx, scenario, token.WithLogger(logger))
	if err != nil {
		_ = formatter.Error(ErrCodeReplay, err.Error(), nil)
		return WrapExitError(ExitCommandError, "replay scenario", err)
	}

	if formatter.JSON() {
		if err := formatter.Success(result); err != nil {
			return err
		}
	} else {
		writeReplayText(formatter.Writer, result)
	}

	if result.Mismatches > 0 {
		return NewExitError(ExitFailure,
			fmt.Sprintf("%d step(s) did not match their expected outcome", result.Mismatches))
	}
	return nil
}

// Replay applies every step of s to a new ledger and summarizes the result.
// The scenario must already be valid.
func Replay(ctx context.Context, s *Scenario, opts ...token.Option) (*ReplayResult, error) {
	decimals := s.Decimals()
	supply, err := s.Genesis.Supply.Amount(decimals)
	if err != nil {
		return nil, fmt.Errorf("genesis supply: %w", err)
	}

	opts = append([]token.Option{token.WithClock(func() time.Time { return replayEpoch })}, opts...)
	l := token.New(token.Genesis{
		Name:          s.Genesis.Name,
		Symbol:        s.Genesis.Symbol,
		Decimals:      decimals,
		InitialSupply: supply,
		Owner:         types.Principal(s.Genesis.Owner),
	}, opts...)

	result := &ReplayResult{
		Scenario: s.Name,
		Steps:    make([]StepResult, 0, len(s.Steps)),
	}

	for i, step := range s.Steps {
		outcome := ExpectOK
		if err := applyStep(ctx, l, step, decimals); err != nil {
			outcome = token.ErrorKind(err)
		}
		sr := StepResult{
			Index:   i + 1,
			Op:      step.Op,
			Caller:  step.Caller,
			Outcome: outcome,
			Expect:  step.Expected(),
			Match:   outcome == step.Expected(),
		}
		if !sr.Match {
			result.Mismatches++
		}
		result.Steps = append(result.Steps, sr)
	}

	snap := l.Snapshot()
	result.Name = snap.Name
	result.Symbol = snap.Symbol
	result.Decimals = snap.Decimals
	result.TotalSupply = snap.TotalSupply.Format(decimals)
	result.Owner = string(snap.Owner)
	result.SellPrice = snap.SellPrice.Format(decimals)
	result.BuyPrice = snap.BuyPrice.Format(decimals)

	result.Accounts = make([]AccountView, 0, len(snap.Accounts))
	for _, a := range snap.Accounts {
		result.Accounts = append(result.Accounts, AccountView{
			Principal: string(a.Principal),
			Balance:   a.Balance.Format(decimals),
			Frozen:    a.Frozen,
		})
	}

	notes := l.Notifications(0)
	result.Notifications = make([]NotificationView, 0, len(notes))
	for _, n := range notes {
		result.Notifications = append(result.Notifications, notificationView(n, decimals))
	}

	result.Audit = ExpectOK
	if err := l.Audit(); err != nil {
		result.Audit = err.Error()
	}

	return result, nil
}

func applyStep(ctx context.Context, l *token.Ledger, step Step, decimals uint8) error {
	caller := types.Principal(step.Caller)

	switch step.Op {
	case OpTransfer:
		amount, err := step.Amount.Amount(decimals)
		if err != nil {
			return err
		}
		return l.Transfer(ctx, caller, types.Principal(step.To), amount)
	case OpMint:
		amount, err := step.Amount.Amount(decimals)
		if err != nil {
			return err
		}
		return l.MintToken(ctx, caller, types.Principal(step.Target), amount)
	case OpFreeze:
		return l.FreezeAccount(ctx, caller, types.Principal(step.Target), step.Frozen)
	case OpSetPrices:
		sell, err := step.Sell.Amount(decimals)
		if err != nil {
			return err
		}
		buy, err := step.Buy.Amount(decimals)
		if err != nil {
			return err
		}
		return l.SetPrices(ctx, caller, sell, buy)
	case OpTransferOwnership:
		return l.TransferOwnership(ctx, caller, types.Principal(step.NewOwner))
	default:
		return fmt.Errorf("unknown operation %q", step.Op)
	}
}

func notificationView(n notification.Notification, decimals uint8) NotificationView {
	v := NotificationView{Seq: n.Seq, Kind: string(n.Kind)}
	switch n.Kind {
	case notification.KindTransfer:
		v.From = string(n.From)
		v.To = string(n.To)
		v.Value = n.Value.Format(decimals)
	case notification.KindFrozenFunds:
		v.Target = string(n.Target)
		v.Frozen = n.Frozen
	}
	return v
}

func writeReplayText(w io.Writer, r *ReplayResult) {
	fmt.Fprintf(w, "scenario: %s\n", r.Scenario)
	fmt.Fprintf(w, "token: %s (%s), %d decimals\n", r.Name, r.Symbol, r.Decimals)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "steps:")
	for _, s := range r.Steps {
		fmt.Fprintf(w, "  #%d %s by %s: %s", s.Index, s.Op, s.Caller, s.Outcome)
		if !s.Match {
			fmt.Fprintf(w, " (expected %s)", s.Expect)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "accounts:")
	for _, a := range r.Accounts {
		fmt.Fprintf(w, "  %s %s", a.Principal, a.Balance)
		if a.Frozen {
			fmt.Fprint(w, " frozen")
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "total supply: %s\n", r.TotalSupply)
	fmt.Fprintf(w, "owner: %s\n", r.Owner)
	fmt.Fprintf(w, "prices: sell %s, buy %s\n", r.SellPrice, r.BuyPrice)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "notifications:")
	for _, n := range r.Notifications {
		switch notification.Kind(n.Kind) {
		case notification.KindFrozenFunds:
			fmt.Fprintf(w, "  #%d %s %s frozen=%t\n", n.Seq, n.Kind, n.Target, n.Frozen)
		default:
			fmt.Fprintf(w, "  #%d %s %s -> %s %s\n", n.Seq, n.Kind, n.From, n.To, n.Value)
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "audit: %s\n", r.Audit)
	fmt.Fprintf(w, "result: %d step(s), %d mismatch(es)\n", len(r.Steps), r.Mismatches)
}
