// potcalc 离线计算边池与分钱结果，输入为各玩家下注的 JSON。
//
//	potcalc -dealer 0 -size 6 -winner 0=A,B -winner 1=C stakes.json
//	cat stakes.json | potcalc
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"

	"ChipTracker/internal/game/pot"
	"ChipTracker/internal/game/table"
)

// stakeInput seat 缺省时按输入顺序编号
type stakeInput struct {
	table.PlayerStake
	Seat *int `json:"seat"`
}

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "potcalc:", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout io.Writer) error {
	fs := flag.NewFlagSet("potcalc", flag.ContinueOnError)
	fs.SetOutput(stdout)
	dealer := fs.Int("dealer", 0, "dealer seat")
	size := fs.Int("size", 0, "table size (defaults to number of players)")
	winners := map[int][]string{}
	fs.Func("winner", "pot winners as INDEX=ID[,ID...], repeatable", func(v string) error {
		idx, ids, ok := strings.Cut(v, "=")
		if !ok {
			return fmt.Errorf("expected INDEX=ID[,ID...], got %q", v)
		}
		i, err := strconv.Atoi(strings.TrimSpace(idx))
		if err != nil || i < 0 {
			return fmt.Errorf("bad pot index %q", idx)
		}
		for _, id := range strings.Split(ids, ",") {
			if id = strings.TrimSpace(id); id != "" {
				winners[i] = append(winners[i], id)
			}
		}
		return nil
	})
	if err := fs.Parse(args); err != nil {
		return err
	}

	in := stdin
	if fs.NArg() > 0 && fs.Arg(0) != "-" {
		f, err := os.Open(fs.Arg(0))
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	var inputs []stakeInput
	if err := json.NewDecoder(in).Decode(&inputs); err != nil {
		return fmt.Errorf("decode stakes: %w", err)
	}
	stakes := make([]table.PlayerStake, len(inputs))
	seats := make(map[string]int, len(inputs))
	for i, s := range inputs {
		if s.Status == "" {
			s.Status = table.StatusActive
		}
		stakes[i] = s.PlayerStake
		seat := i
		if s.Seat != nil {
			seat = *s.Seat
		}
		seats[s.PlayerID] = seat
	}
	tableSize := *size
	if tableSize <= 0 {
		tableSize = len(inputs)
	}

	raw := pot.Partition(stakes)
	pots, contested := pot.Consolidate(raw)

	tw := tablewriter.NewWriter(stdout)
	tw.SetHeader([]string{"Pot", "Amount", "Eligible"})
	for _, p := range pots {
		tw.Append([]string{strconv.Itoa(p.Index), strconv.FormatInt(p.Amount, 10), strings.Join(p.EligiblePlayerIDs, ",")})
	}
	tw.Render()
	fmt.Fprintf(stdout, "total: %d\n", pot.Total(pots))

	if !contested {
		fmt.Fprintln(stdout, "no contested pot, all bets refunded")
		return nil
	}
	if len(winners) == 0 {
		return nil
	}

	seatOf := func(id string) (int, bool) {
		s, ok := seats[id]
		return s, ok
	}
	totals := map[string]int64{}
	for _, p := range pots {
		if p.Amount == 0 {
			continue
		}
		ids := winners[p.Index]
		if len(ids) == 0 {
			if len(p.EligiblePlayerIDs) != 1 {
				return fmt.Errorf("pot %d has %d eligible players and no winners", p.Index, len(p.EligiblePlayerIDs))
			}
			ids = p.EligiblePlayerIDs
		}
		for _, id := range ids {
			if !p.Eligible(id) {
				return fmt.Errorf("player %s is not eligible for pot %d", id, p.Index)
			}
		}
		shares, err := pot.Allocate(p.Amount, ids, *dealer, tableSize, seatOf)
		if err != nil {
			return err
		}
		for id, v := range shares {
			totals[id] += v
		}
	}

	ids := make([]string, 0, len(totals))
	for id := range totals {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	aw := tablewriter.NewWriter(stdout)
	aw.SetHeader([]string{"Player", "Seat", "Winnings"})
	for _, id := range ids {
		aw.Append([]string{id, strconv.Itoa(seats[id]), strconv.FormatInt(totals[id], 10)})
	}
	aw.Render()
	return nil
}
