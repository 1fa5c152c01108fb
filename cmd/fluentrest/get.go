package fluentrest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/edgeflare/fluentrest/pkg/halclient"
	"github.com/spf13/cobra"
)

var getCmd = &cobra.Command{
	Use:   "get URL [RESOURCE [ID]]...",
	Short: "Fetch a resource of a HAL API by following its links",
	Long: `Fetches the API root at URL, then follows the named links down to the
requested resource, eg

  fluentrest get http://localhost:8080/api/ accounts 42 addresses --filter city=Springfield`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		filters, _ := cmd.Flags().GetStringArray("filter")
		named, _ := cmd.Flags().GetString("named")
		headers, _ := cmd.Flags().GetStringArray("header")
		retries, _ := cmd.Flags().GetInt("retries")

		query, err := keyValues(filters)
		if err != nil {
			return err
		}
		opts := []halclient.Option{halclient.WithLogger(logger), halclient.WithRetries(retries)}
		for _, h := range headers {
			k, v, ok := strings.Cut(h, ":")
			if !ok {
				return fmt.Errorf("invalid header %q, want Name: value", h)
			}
			opts = append(opts, halclient.WithHeader(strings.TrimSpace(k), strings.TrimSpace(v)))
		}
		return get(cmd.Context(), cmd.OutOrStdout(), args[0], args[1:], query, named, opts...)
	},
}

func init() {
	f := getCmd.Flags()
	f.StringArrayP("filter", "f", nil, "equality filter or query parameter as key=value, repeatable")
	f.StringP("named", "n", "", "run the named query of the last resource")
	f.StringArrayP("header", "H", nil, "request header as 'Name: value', repeatable")
	f.Int("retries", 3, "retry attempts for failed requests")
}

// get walks path, alternating resource names and ids, and writes the final
// response body as indented JSON.
func get(ctx context.Context, out io.Writer, root string, path []string, query url.Values, named string, opts ...halclient.Option) error {
	b := halclient.NewBuilder(opts...)
	var rb *halclient.ResourceBuilder
	for i := 0; i < len(path); i += 2 {
		if rb == nil {
			rb = b.Resource(path[i])
		} else {
			rb = rb.Resource(path[i])
		}
	}

	client, err := b.HAL(root)
	if err != nil {
		return err
	}

	var resp *halclient.Response
	if len(path) == 0 {
		resp, err = client.Root(ctx)
	} else {
		resp, err = walk(ctx, client, path, query, named)
	}
	if err != nil {
		return err
	}
	return writeJSON(out, resp.Body)
}

func walk(ctx context.Context, client *halclient.Client, path []string, query url.Values, named string) (*halclient.Response, error) {
	proxy, err := client.Resource(path[0])
	if err != nil {
		return nil, err
	}
	for i := 1; i < len(path); i++ {
		if i%2 == 1 {
			if i == len(path)-1 {
				return proxy.FindByID(ctx, path[i])
			}
			proxy, err = proxy.Item(path[i])
		} else {
			proxy, err = proxy.Resource(path[i])
		}
		if err != nil {
			return nil, err
		}
	}
	if named != "" {
		return proxy.FindByNamedQuery(ctx, named)
	}
	return proxy.Find(ctx, query)
}

func keyValues(pairs []string) (url.Values, error) {
	values := make(url.Values, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid filter %q, want key=value", p)
		}
		values.Add(k, v)
	}
	return values, nil
}

func writeJSON(out io.Writer, body []byte) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, body, "", "  "); err != nil {
		_, err = out.Write(body)
		return err
	}
	buf.WriteByte('\n')
	_, err := buf.WriteTo(out)
	return err
}
