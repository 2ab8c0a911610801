// Command tokeninspect decodes an RTC/RTM access token and optionally verifies its signature.
//
//	tokeninspect [--cert <appCertificate>] [--json] <token>
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/spf13/pflag"

	"github.com/spec-kit/token-service/internal/accesstoken"
)

var errSignatureMismatch = errors.New("signature does not match certificate")

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "tokeninspect:", err)
		os.Exit(1)
	}
}

type privilegeView struct {
	Privilege uint16    `json:"privilege"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type serviceView struct {
	Type       string          `json:"type"`
	Channel    string          `json:"channel,omitempty"`
	Account    string          `json:"account"`
	Privileges []privilegeView `json:"privileges"`
}

type tokenView struct {
	AppID     string        `json:"appID"`
	IssuedAt  time.Time     `json:"issuedAt"`
	ExpiresAt time.Time     `json:"expiresAt"`
	Salt      uint32        `json:"salt"`
	Services  []serviceView `json:"services"`
	Verified  *bool         `json:"verified,omitempty"`
}

func run(args []string, out io.Writer) error {
	fs := pflag.NewFlagSet("tokeninspect", pflag.ContinueOnError)
	cert := fs.String("cert", "", "app certificate to verify the signature with")
	asJSON := fs.Bool("json", false, "print JSON instead of text")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("expected exactly one token argument")
	}

	token, err := accesstoken.Parse(fs.Arg(0))
	if err != nil {
		return err
	}
	view := newTokenView(token)
	if *cert != "" {
		ok := token.Verify(*cert)
		view.Verified = &ok
	}

	if *asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(view); err != nil {
			return err
		}
	} else {
		printText(out, view)
	}

	if view.Verified != nil && !*view.Verified {
		return errSignatureMismatch
	}
	return nil
}

func newTokenView(t *accesstoken.AccessToken) tokenView {
	issued := time.Unix(int64(t.IssueTs), 0).UTC()
	view := tokenView{
		AppID:     t.AppID,
		IssuedAt:  issued,
		ExpiresAt: time.Unix(int64(t.ExpiresAt()), 0).UTC(),
		Salt:      t.Salt,
	}

	types := make([]int, 0, len(t.Services))
	for st := range t.Services {
		types = append(types, int(st))
	}
	sort.Ints(types)

	for _, st := range types {
		s := t.Services[accesstoken.ServiceType(st)]
		sv := serviceView{Type: s.Type.String(), Channel: s.ChannelName, Account: s.Account}
		for p, expire := range s.Privileges {
			sv.Privileges = append(sv.Privileges, privilegeView{
				Privilege: p,
				ExpiresAt: issued.Add(time.Duration(expire) * time.Second),
			})
		}
		sort.Slice(sv.Privileges, func(i, j int) bool { return sv.Privileges[i].Privilege < sv.Privileges[j].Privilege })
		view.Services = append(view.Services, sv)
	}
	return view
}

func printText(out io.Writer, v tokenView) {
	fmt.Fprintf(out, "app id:     %s\n", v.AppID)
	fmt.Fprintf(out, "issued at:  %s\n", v.IssuedAt.Format(time.RFC3339))
	fmt.Fprintf(out, "expires at: %s\n", v.ExpiresAt.Format(time.RFC3339))
	for _, s := range v.Services {
		fmt.Fprintf(out, "service %s account=%q", s.Type, s.Account)
		if s.Channel != "" {
			fmt.Fprintf(out, " channel=%q", s.Channel)
		}
		fmt.Fprintln(out)
		for _, p := range s.Privileges {
			fmt.Fprintf(out, "  privilege %d until %s\n", p.Privilege, p.ExpiresAt.Format(time.RFC3339))
		}
	}
	if v.Verified != nil {
		fmt.Fprintf(out, "signature:  %t\n", *v.Verified)
	}
}
