package commands

import (
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/fivetwenty-io/flanks-go/internal/constants"
	"github.com/fivetwenty-io/flanks-go/pkg/flanks"
)

// TokenInfo is the decoded view of an access token.
type TokenInfo struct {
	Token     string                 `json:"token"                yaml:"token"`
	ExpiresAt *time.Time             `json:"expires_at,omitempty" yaml:"expires_at,omitempty"`
	Claims    map[string]interface{} `json:"claims,omitempty"     yaml:"claims,omitempty"`
}

// NewTokenCommand creates the token command.
func NewTokenCommand() *cobra.Command {
	var decode bool

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Fetch an access token",
		Long:  "Exchange the configured client credentials for an access token and print it",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, cleanup, err := CreateClient(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			source, ok := client.(flanks.TokenSource)
			if !ok {
				return constants.ErrNoTokenSource
			}

			token, err := source.Token(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to get token: %w", err)
			}

			if !decode {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), token)

				return err
			}

			info, err := DecodeToken(token)
			if err != nil {
				return err
			}

			return renderValue(cmd.OutOrStdout(), info, func(table *tablewriter.Table) {
				table.Header("Claim", "Value")

				for _, key := range slices.Sorted(maps.Keys(info.Claims)) {
					_ = table.Append(key, fmt.Sprint(info.Claims[key]))
				}
			})
		},
	}

	cmd.Flags().BoolVar(&decode, "decode", false, "decode the JWT claims without verifying the signature")

	return cmd
}

// DecodeToken parses a JWT without verifying its signature.
func DecodeToken(token string) (*TokenInfo, error) {
	claims := jwt.MapClaims{}

	_, _, err := jwt.NewParser().ParseUnverified(token, claims)
	if err != nil {
		return nil, fmt.Errorf("failed to decode token: %w", err)
	}

	info := &TokenInfo{Token: token, Claims: claims}

	exp, err := claims.GetExpirationTime()
	if err == nil && exp != nil {
		expiresAt := exp.UTC()
		info.ExpiresAt = &expiresAt
	}

	return info, nil
}
