package ui

import (
	"context"
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/ggsolution/autotok/internal/domain"
)

const confirmPage = "confirm"

var accountHeaders = []string{"ID", "NICKNAME", "TOKEN", "UPDATED"}

// createAccountsPanel creates the connected accounts table.
func (a *App) createAccountsPanel() {
	a.accountsTable = tview.NewTable().
		SetBorders(false).
		SetSelectable(true, false).
		SetFixed(1, 0)
	a.accountsTable.SetBorder(true).SetTitle(" Accounts - Press 'd' to remove ")
	a.accountsTable.SetSelectedStyle(tcell.StyleDefault.
		Foreground(tcell.ColorWhite).
		Background(tcell.ColorDarkCyan))

	setHeaderRow(a.accountsTable, accountHeaders)

	a.accountsTable.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		row, _ := a.accountsTable.GetSelection()
		if row == 0 {
			return event
		}
		cell := a.accountsTable.GetCell(row, 0)
		if cell == nil || cell.Text == "" {
			return event
		}

		if event.Key() == tcell.KeyRune {
			switch event.Rune() {
			case 'd', 'D':
				a.confirmRemove(domain.AccountID(cell.Text))
				return nil
			}
		}
		return event
	})
}

// fillAccounts replaces the table body with accounts.
func (a *App) fillAccounts(accounts []domain.Account) {
	clearBody(a.accountsTable)

	now := a.now()
	for i, acc := range accounts {
		row := i + 1
		a.accountsTable.SetCell(row, 0, tview.NewTableCell(acc.ID.String()).SetExpansion(2))
		a.accountsTable.SetCell(row, 1, tview.NewTableCell(displayName(acc)).SetExpansion(2))

		status, color := tokenStatus(acc)
		a.accountsTable.SetCell(row, 2, tview.NewTableCell(status).SetTextColor(color).SetExpansion(1))
		a.accountsTable.SetCell(row, 3, tview.NewTableCell(formatAge(acc.UpdatedAt, now)).SetExpansion(1))
	}

	if len(accounts) == 0 {
		a.accountsTable.SetCell(1, 0, tview.NewTableCell("No connected accounts").
			SetTextColor(tcell.ColorGray).
			SetSelectable(false))
	}
}

// confirmRemove asks before removing the account unless confirmation is off.
func (a *App) confirmRemove(id domain.AccountID) {
	if !a.cfg.ConfirmDelete {
		go a.remove(id)
		return
	}

	modal := tview.NewModal().
		SetText(fmt.Sprintf("Remove account %s?\nIts tokens are deleted and it must be connected again to publish.", id)).
		AddButtons([]string{"Remove", "Cancel"}).
		SetDoneFunc(func(buttonIndex int, buttonLabel string) {
			a.pages.RemovePage(confirmPage)
			a.app.SetFocus(a.accountsTable)
			if buttonLabel == "Remove" {
				go a.remove(id)
			}
		})

	a.pages.AddPage(confirmPage, modal, true, true)
}

// remove deletes the account and reloads the tables.
func (a *App) remove(id domain.AccountID) {
	ctx, cancel := context.WithTimeout(a.ctx, 10*time.Second)
	defer cancel()

	if err := a.removeAccount(ctx, id); err != nil {
		a.updateStatusBar(fmt.Sprintf("[red]Error: %v", err))
		return
	}
	a.refresh()
	a.updateStatusBar(fmt.Sprintf("[green]Removed account %s", id))
}

func (a *App) removeAccount(ctx context.Context, id domain.AccountID) error {
	if err := a.accounts.Remove(ctx, id); err != nil {
		return fmt.Errorf("remove account %s: %w", id, err)
	}
	return nil
}

// setHeaderRow writes a yellow, unselectable header in row 0.
func setHeaderRow(table *tview.Table, headers []string) {
	for i, h := range headers {
		cell := tview.NewTableCell(h).
			SetTextColor(tcell.ColorYellow).
			SetSelectable(false).
			SetExpansion(1)
		if i == 0 {
			cell.SetExpansion(2)
		}
		table.SetCell(0, i, cell)
	}
}

// clearBody removes every row below the header.
func clearBody(table *tview.Table) {
	for table.GetRowCount() > 1 {
		table.RemoveRow(table.GetRowCount() - 1)
	}
}
