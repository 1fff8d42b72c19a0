package checkin

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/andino/pulso/internal/models"
	"github.com/andino/pulso/services/checkin-service/internal/store"
)

// Summary holds the daily totals for the digest. Pending is derived from
// Total and Responded so the three stay consistent by construction instead
// of by a second count that could race with the first.
type Summary struct {
	Total     int64 `json:"total"`
	Responded int64 `json:"responded"`
	Pending   int64 `json:"pending"`
	Blockers  int64 `json:"blockers"`
}

// SnapshotTask is a stored task enriched with the employee it belongs to,
// resolved in memory from the check-in it hangs off.
type SnapshotTask struct {
	models.Task
	EmployeeID    uuid.UUID `json:"employee_id"`
	EmployeeName  string    `json:"employee_name"`
	EmployeeEmail string    `json:"employee_email"`
}

// EmployeeReport is one employee's slice of the digest: status tallies plus
// the non-empty blocker notes they reported.
type EmployeeReport struct {
	EmployeeID uuid.UUID      `json:"employee_id"`
	Name       string         `json:"name"`
	Email      string         `json:"email"`
	Counts     map[string]int `json:"counts"`
	Blockers   []string       `json:"blockers"`
}

// BuildSummary computes the daily totals. Blockers needs a two-step read
// (check-in ids for the date, then the task filter) because the store cannot
// filter tasks on the parent check-in's date.
func (s *Service) BuildSummary(ctx context.Context, day time.Time) (*Summary, error) {
	dateStr := day.Format(models.DateFormat)

	total, err := s.countCheckins(ctx, store.Eq("date", dateStr))
	if err != nil {
		return nil, err
	}
	responded, err := s.countCheckins(ctx, store.Eq("date", dateStr), store.NotNull("reply_received_at"))
	if err != nil {
		return nil, err
	}

	checkinIDs, err := s.checkinIDs(ctx, dateStr)
	if err != nil {
		return nil, err
	}
	var blockers int64
	if len(checkinIDs) > 0 {
		var rows []struct {
			ID      int64   `json:"id"`
			Blocker *string `json:"blocker"`
		}
		_, err := s.store.Select(ctx, tableTasks, &rows, store.Query{
			Columns: []string{"id", "blocker"},
			Filters: []store.Filter{
				store.In("checkin_id", checkinIDs),
				store.NotNull("blocker"),
				store.Neq("blocker", ""),
			},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to count blockers: %w", err)
		}
		blockers = int64(len(rows))
	}

	return &Summary{
		Total:     total,
		Responded: responded,
		Pending:   total - responded,
		Blockers:  blockers,
	}, nil
}

func (s *Service) countCheckins(ctx context.Context, filters ...store.Filter) (int64, error) {
	var rows []struct {
		ID string `json:"id"`
	}
	count, err := s.store.Select(ctx, tableCheckins, &rows, store.Query{
		Columns: []string{"id"},
		Filters: filters,
		Count:   true,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count check-ins: %w", err)
	}
	return count, nil
}

func (s *Service) checkinIDs(ctx context.Context, dateStr string) ([]string, error) {
	var rows []struct {
		ID string `json:"id"`
	}
	_, err := s.store.Select(ctx, tableCheckins, &rows, store.Query{
		Columns: []string{"id"},
		Filters: []store.Filter{store.Eq("date", dateStr)},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list check-ins for date: %w", err)
	}
	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}
	return ids, nil
}

// Snapshot fetches every task of the date enriched with employee identity.
// Three reads (check-ins, employees, tasks) stitched together in memory;
// tasks come back ordered by check-in then reported order.
func (s *Service) Snapshot(ctx context.Context, day time.Time) ([]SnapshotTask, error) {
	dateStr := day.Format(models.DateFormat)

	var chks []models.Checkin
	_, err := s.store.Select(ctx, tableCheckins, &chks, store.Query{
		Columns: []string{"id", "employee_id", "thread_id", "first_message_id"},
		Filters: []store.Filter{store.Eq("date", dateStr)},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list check-ins for snapshot: %w", err)
	}
	if len(chks) == 0 {
		return nil, nil
	}

	checkinIDs := make([]string, len(chks))
	empByCheckin := make(map[string]uuid.UUID, len(chks))
	employeeIDSet := make(map[uuid.UUID]struct{})
	for i, c := range chks {
		checkinIDs[i] = c.ID
		empByCheckin[c.ID] = c.EmployeeID
		employeeIDSet[c.EmployeeID] = struct{}{}
	}
	employeeIDs := make([]string, 0, len(employeeIDSet))
	for id := range employeeIDSet {
		employeeIDs = append(employeeIDs, id.String())
	}
	sort.Strings(employeeIDs)

	var emps []models.Employee
	_, err = s.store.Select(ctx, tableEmployees, &emps, store.Query{
		Columns: []string{"id", "name", "email"},
		Filters: []store.Filter{store.In("id", employeeIDs)},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list employees for snapshot: %w", err)
	}
	employeesByID := make(map[uuid.UUID]models.Employee, len(emps))
	for _, e := range emps {
		employeesByID[e.ID] = e
	}

	var tasks []models.Task
	_, err = s.store.Select(ctx, tableTasks, &tasks, store.Query{
		Filters: []store.Filter{store.In("checkin_id", checkinIDs)},
		Order:   []store.Order{store.Asc("checkin_id"), store.Asc("task_order")},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks for snapshot: %w", err)
	}

	enriched := make([]SnapshotTask, 0, len(tasks))
	for _, t := range tasks {
		eid := empByCheckin[t.CheckinID]
		emp := employeesByID[eid]
		enriched = append(enriched, SnapshotTask{
			Task:          t,
			EmployeeID:    eid,
			EmployeeName:  emp.DisplayName(),
			EmployeeEmail: emp.Email,
		})
	}
	return enriched, nil
}

// Breakdown groups an already-fetched snapshot per employee, tallying
// statuses and collecting non-empty blocker notes. Pure in-memory grouping,
// ordered by employee name for stable digest rendering.
func Breakdown(snapshot []SnapshotTask) []EmployeeReport {
	byEmployee := make(map[uuid.UUID]*EmployeeReport)
	var order []uuid.UUID
	for _, t := range snapshot {
		rep, ok := byEmployee[t.EmployeeID]
		if !ok {
			rep = &EmployeeReport{
				EmployeeID: t.EmployeeID,
				Name:       t.EmployeeName,
				Email:      t.EmployeeEmail,
				Counts:     make(map[string]int),
			}
			byEmployee[t.EmployeeID] = rep
			order = append(order, t.EmployeeID)
		}
		rep.Counts[t.Status]++
		if t.HasBlocker() {
			rep.Blockers = append(rep.Blockers, *t.Blocker)
		}
	}

	reports := make([]EmployeeReport, 0, len(byEmployee))
	for _, id := range order {
		reports = append(reports, *byEmployee[id])
	}
	sort.SliceStable(reports, func(i, j int) bool { return reports[i].Name < reports[j].Name })
	return reports
}
