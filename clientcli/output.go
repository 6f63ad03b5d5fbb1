package clientcli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"
)

// Formatter formats results for output.
type Formatter interface {
	FormatGenerate(w io.Writer, result *GenerateResult) error
	FormatScan(w io.Writer, result *ScanResult) error
	FormatAudit(w io.Writer, result *AuditResult) error
	FormatError(w io.Writer, err error) error
	FormatProfileList(w io.Writer, profiles []Profile, defaultName string, showSecrets bool) error
	FormatProfileShow(w io.Writer, profile Profile, isDefault, showSecrets bool) error
}

// NewFormatter returns the appropriate formatter based on flags.
func NewFormatter(jsonOutput, quiet bool) Formatter {
	if jsonOutput {
		return &JSONFormatter{}
	}
	return &HumanFormatter{Quiet: quiet}
}

// HumanFormatter outputs human-readable text.
type HumanFormatter struct {
	Quiet bool
}

// FormatGenerate formats a generate result as human-readable text.
func (f *HumanFormatter) FormatGenerate(w io.Writer, result *GenerateResult) error {
	if f.Quiet {
		return nil
	}
	if result.LocalPath == "-" {
		_, _ = fmt.Fprintf(w, "Generated: %dx%d code (%s)\n", result.Size, result.Size, formatSize(result.Bytes))
	} else {
		_, _ = fmt.Fprintf(w, "Generated: %s (%dx%d, %s)\n", result.LocalPath, result.Size, result.Size, formatSize(result.Bytes))
	}
	return nil
}

// FormatScan formats a decoded payment as human-readable text.
func (f *HumanFormatter) FormatScan(w io.Writer, result *ScanResult) error {
	p := &result.Payment
	_, _ = fmt.Fprintf(w, "Recipient:  %s\n", p.Recipient)
	_, _ = fmt.Fprintf(w, "IBAN:       %s\n", p.IBAN)
	if p.BIC != "" {
		_, _ = fmt.Fprintf(w, "BIC:        %s\n", p.BIC)
	}
	_, _ = fmt.Fprintf(w, "Amount:     %s %s\n", p.Amount, p.Currency)
	if p.Purpose != "" {
		_, _ = fmt.Fprintf(w, "Purpose:    %s\n", p.Purpose)
	}
	if p.Reference != "" {
		_, _ = fmt.Fprintf(w, "Reference:  %s\n", p.Reference)
	}
	if p.Remittance != "" {
		_, _ = fmt.Fprintf(w, "Remittance: %s\n", p.Remittance)
	}
	return nil
}

// FormatAudit formats access records as human-readable text.
func (f *HumanFormatter) FormatAudit(w io.Writer, result *AuditResult) error {
	if len(result.Records) == 0 {
		_, _ = fmt.Fprintln(w, "No records found")
		return nil
	}

	_, _ = fmt.Fprintf(w, "%8s  %-20s  %-6s  %-30s  %6s  %s\n", "ID", "TOKEN", "METHOD", "PATH", "STATUS", "TIME")
	_, _ = fmt.Fprintf(w, "%s  %s  %s  %s  %s  %s\n",
		strings.Repeat("-", 8), strings.Repeat("-", 20), strings.Repeat("-", 6),
		strings.Repeat("-", 30), strings.Repeat("-", 6), strings.Repeat("-", 19))

	for i := range result.Records {
		r := &result.Records[i]
		tokenID := r.TokenID
		if tokenID == "" {
			tokenID = "(anonymous)"
		}
		path := r.Path
		if len(path) > 30 {
			path = path[:27] + "..."
		}
		_, _ = fmt.Fprintf(w, "%8d  %-20s  %-6s  %-30s  %6d  %s\n",
			r.ID, tokenID, r.Method, path, r.StatusCode,
			time.UnixMilli(r.Timestamp).UTC().Format("2006-01-02 15:04:05"))
	}

	_, _ = fmt.Fprintf(w, "\n%d record(s)\n", len(result.Records))

	if result.NextCursor != "" {
		_, _ = fmt.Fprintf(w, "Next page: use --cursor %q\n", result.NextCursor)
	}
	return nil
}

// FormatError formats an error as human-readable text.
func (f *HumanFormatter) FormatError(w io.Writer, err error) error {
	_, _ = fmt.Fprintf(w, "Error: %v\n", err)
	return nil
}

// FormatProfileList formats profiles as human-readable text.
func (f *HumanFormatter) FormatProfileList(w io.Writer, profiles []Profile, defaultName string, showSecrets bool) error {
	for i := range profiles {
		p := &profiles[i]
		marker := " "
		if p.Name == defaultName {
			marker = "*"
		}
		token := maskSecret(p.Token, showSecrets)
		_, _ = fmt.Fprintf(w, "%s %-20s %-40s %s\n", marker, p.Name, p.Endpoint, token)
	}
	return nil
}

// FormatProfileShow formats a single profile as human-readable text.
func (f *HumanFormatter) FormatProfileShow(w io.Writer, profile Profile, isDefault, showSecrets bool) error {
	_, _ = fmt.Fprintf(w, "Name:     %s\n", profile.Name)
	_, _ = fmt.Fprintf(w, "Endpoint: %s\n", profile.Endpoint)
	_, _ = fmt.Fprintf(w, "Token:    %s\n", maskSecret(profile.Token, showSecrets))
	_, _ = fmt.Fprintf(w, "Default:  %t\n", isDefault)
	return nil
}

// JSONFormatter outputs JSON.
type JSONFormatter struct{}

// FormatGenerate formats a generate result as JSON.
func (f *JSONFormatter) FormatGenerate(w io.Writer, result *GenerateResult) error {
	return writeJSON(w, result)
}

// FormatScan formats a decoded payment as JSON.
func (f *JSONFormatter) FormatScan(w io.Writer, result *ScanResult) error {
	return writeJSON(w, result)
}

// FormatAudit formats access records as JSON.
func (f *JSONFormatter) FormatAudit(w io.Writer, result *AuditResult) error {
	return writeJSON(w, result)
}

// FormatError formats an error as JSON.
func (f *JSONFormatter) FormatError(w io.Writer, err error) error {
	return writeJSON(w, map[string]string{"error": err.Error()})
}

// FormatProfileList formats profiles as JSON.
func (f *JSONFormatter) FormatProfileList(w io.Writer, profiles []Profile, defaultName string, showSecrets bool) error {
	type jsonProfile struct {
		Name     string `json:"name"`
		Endpoint string `json:"endpoint"`
		Token    string `json:"token,omitempty"`
		Default  bool   `json:"default"`
	}

	out := make([]jsonProfile, 0, len(profiles))
	for i := range profiles {
		p := &profiles[i]
		jp := jsonProfile{
			Name:     p.Name,
			Endpoint: p.Endpoint,
			Default:  p.Name == defaultName,
		}
		if showSecrets {
			jp.Token = p.Token
		}
		out = append(out, jp)
	}
	return writeJSON(w, out)
}

// FormatProfileShow formats a single profile as JSON.
func (f *JSONFormatter) FormatProfileShow(w io.Writer, profile Profile, isDefault, showSecrets bool) error {
	if !showSecrets {
		profile.Token = ""
	}
	profile.Default = isDefault
	return writeJSON(w, profile)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// maskSecret hides all but the first four characters of a secret.
func maskSecret(s string, show bool) string {
	if show || s == "" {
		return s
	}
	if len(s) <= 4 {
		return "****"
	}
	return s[:4] + strings.Repeat("*", len(s)-4)
}

// formatSize renders a byte count in human units.
func formatSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
