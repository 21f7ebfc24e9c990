package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

// quoteCmd represents the quote command
var quoteCmd = &cobra.Command{
	Use:   "quote [code...]",
	Short: "현재가 조회",
	Long: `종목코드의 현재가를 한 번 조회합니다.
DB 없이 시세 캐시/소스만 사용합니다.

Example:
  go run ./cmd/papertrade quote 005930
  go run ./cmd/papertrade quote 005930 000660`,
	Args: cobra.MinimumNArgs(1),
	RunE: runQuote,
}

func init() {
	rootCmd.AddCommand(quoteCmd)
}

func runQuote(cmd *cobra.Command, args []string) error {
	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	quotes, errs := a.market.Quotes.GetMany(ctx, args)

	for _, code := range args {
		if err, failed := errs[code]; failed {
			PrintError(fmt.Sprintf("%s: %v", code, err))
			continue
		}
		q := quotes[code]

		fmt.Println()
		PrintDoubleSeparator()
		fmt.Printf("  %s %s\n", q.Code, q.Name)
		PrintSeparator()
		PrintKeyValue("현재가", formatWon(q.Price), 8)
		PrintKeyValue("전일대비", fmt.Sprintf("%s (%s)", formatSigned(q.Change), formatRate(q.ChangeRate)), 8)
		PrintKeyValue("시가/고가/저가", fmt.Sprintf("%s / %s / %s", humanize.Comma(q.Open), humanize.Comma(q.High), humanize.Comma(q.Low)), 8)
		PrintKeyValue("거래량", humanize.Comma(q.Volume), 8)
		PrintKeyValue("거래대금", formatWon(q.TradingValue), 8)
		PrintKeyValue("출처", fmt.Sprintf("%s (%s)", q.Source, humanize.Time(q.Timestamp)), 8)
	}

	if len(errs) > 0 {
		return fmt.Errorf("%d of %d quotes failed", len(errs), len(args))
	}
	return nil
}
