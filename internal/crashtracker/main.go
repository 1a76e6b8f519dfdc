package crashtracker

import (
	"context"
	"fmt"
	"strings"

	"github.com/stellar/go/support/log"
)

type Type string

const (
	TypeSentry Type = "SENTRY"
	TypeDryRun Type = "DRY_RUN"
)

func ParseType(s string) (Type, error) {
	t := Type(strings.ToUpper(s))
	switch t {
	case TypeSentry, TypeDryRun:
		return t, nil
	default:
		return "", fmt.Errorf("invalid crash tracker type %q", s)
	}
}

type Options struct {
	Type        Type
	Environment string
	GitCommit   string
	SentryDSN   string
}

func GetClient(ctx context.Context, opts Options) (Client, error) {
	switch opts.Type {
	case TypeSentry:
		log.Ctx(ctx).Infof("using %q crash tracker", opts.Type)
		return NewSentryClient(opts.SentryDSN, opts.Environment, opts.GitCommit)
	case TypeDryRun:
		log.Ctx(ctx).Warnf("using %q crash tracker", opts.Type)
		return NewDryRunClient()
	default:
		return nil, fmt.Errorf("unknown crash tracker type: %q", opts.Type)
	}
}
