package ops

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/franpena/repartos/internal/model"
)

func applyCreatePackage(ctx context.Context, tx *sql.Tx, tenantID int64, req Request) (*Result, *ledgerEntry, error) {
	if req.ConductorID <= 0 {
		return nil, nil, validationf("conductor_id es obligatorio")
	}
	tracking := strings.TrimSpace(req.Tracking)
	if len(tracking) < minTrackingLen {
		return nil, nil, validationf(fmt.Sprintf("la guía debe tener al menos %d caracteres", minTrackingLen))
	}
	if !model.ValidCategory(req.Category) {
		return nil, nil, validationf("category debe ser 'prepago' o 'contraentrega'")
	}

	var value *float64
	if req.Category == model.CategoryCOD {
		if req.Value == nil || *req.Value <= 0 {
			return nil, nil, validationf("los paquetes contraentrega requieren un valor positivo")
		}
		value = req.Value
	}

	date := req.DeliveryDate
	if date == "" {
		date = time.Now().Format("2006-01-02")
	} else if !validDate(date) {
		return nil, nil, validationf("delivery_date debe tener formato AAAA-MM-DD")
	}

	c, err := ownedConductor(ctx, tx, tenantID, req.ConductorID)
	if err != nil {
		return nil, nil, err
	}

	exists, err := trackingExists(ctx, tx, tenantID, tracking)
	if err != nil {
		return nil, nil, err
	}
	if exists {
		return nil, nil, validationf(fmt.Sprintf("la guía %s ya existe", tracking))
	}

	result, err := tx.ExecContext(ctx,
		`INSERT INTO packages (conductor_id, tracking, category, delivery_date, value)
		 VALUES (?, ?, ?, ?, ?)`,
		c.ID, tracking, req.Category, date, value)
	if err != nil {
		return nil, nil, fmt.Errorf("creating package: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, nil, fmt.Errorf("getting package id: %w", err)
	}

	return &Result{
			Message:  fmt.Sprintf("Paquete %s asignado a %s", tracking, c.Name),
			Affected: 1,
		}, &ledgerEntry{
			Type:        TypeCreatePackage,
			Description: fmt.Sprintf("Creación de paquete %s para %s", tracking, c.Name),
			Details:     CreateDetails{PackageID: id, Tracking: tracking},
			Affected:    1,
			CanUndo:     true,
		}, nil
}

// applyCreateBulkPackages inserts many packages from newline-separated
// input. Each line is validated independently: a bad line is rejected
// with a line-specific message and the rest of the batch proceeds. Lines
// are "tracking" for prepaid batches and "tracking,value" for
// cash-on-delivery batches.
func applyCreateBulkPackages(ctx context.Context, tx *sql.Tx, tenantID int64, req Request) (*Result, *ledgerEntry, error) {
	if req.ConductorID <= 0 {
		return nil, nil, validationf("conductor_id es obligatorio")
	}
	if !model.ValidCategory(req.Category) {
		return nil, nil, validationf("category debe ser 'prepago' o 'contraentrega'")
	}
	date := req.DeliveryDate
	if date == "" {
		date = time.Now().Format("2006-01-02")
	} else if !validDate(date) {
		return nil, nil, validationf("delivery_date debe tener formato AAAA-MM-DD")
	}

	lines := splitLines(req.BulkLines)
	if len(lines) == 0 {
		return nil, nil, validationf("bulk_lines es obligatorio")
	}

	c, err := ownedConductor(ctx, tx, tenantID, req.ConductorID)
	if err != nil {
		return nil, nil, err
	}

	var inserted []string
	var lineErrors []string
	seen := make(map[string]bool)

	for i, line := range lines {
		tracking, value, err := parseBulkLine(line, req.Category)
		if err != nil {
			lineErrors = append(lineErrors, fmt.Sprintf("línea %d: %v", i+1, err))
			continue
		}
		if seen[tracking] {
			lineErrors = append(lineErrors, fmt.Sprintf("línea %d: guía %s repetida en el lote", i+1, tracking))
			continue
		}
		exists, err := trackingExists(ctx, tx, tenantID, tracking)
		if err != nil {
			return nil, nil, err
		}
		if exists {
			lineErrors = append(lineErrors, fmt.Sprintf("línea %d: la guía %s ya existe", i+1, tracking))
			continue
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO packages (conductor_id, tracking, category, delivery_date, value)
			 VALUES (?, ?, ?, ?, ?)`,
			c.ID, tracking, req.Category, date, value); err != nil {
			return nil, nil, fmt.Errorf("creating package %s: %w", tracking, err)
		}
		seen[tracking] = true
		inserted = append(inserted, tracking)
	}

	if len(inserted) == 0 {
		return nil, nil, validationf("ninguna línea válida: " + strings.Join(lineErrors, "; "))
	}

	return &Result{
			Message:  fmt.Sprintf("%d paquetes creados para %s (%d líneas rechazadas)", len(inserted), c.Name, len(lineErrors)),
			Affected: int64(len(inserted)),
			Details:  strings.Join(lineErrors, "\n"),
		}, &ledgerEntry{
			Type:        TypeCreateBulkPackages,
			Description: fmt.Sprintf("Carga masiva de %d paquetes para %s", len(inserted), c.Name),
			Details: BulkCreateDetails{
				BatchID:     uuid.NewString(),
				ConductorID: c.ID,
				Category:    req.Category,
				Trackings:   inserted,
				LineErrors:  lineErrors,
			},
			Affected: int64(len(inserted)),
			CanUndo:  true,
		}, nil
}

// parseBulkLine parses one bulk-create line. Cash-on-delivery lines carry
// a value after a comma; prepaid lines are the bare tracking code.
func parseBulkLine(line, category string) (string, *float64, error) {
	tracking := line
	var value *float64

	if category == model.CategoryCOD {
		parts := strings.SplitN(line, ",", 2)
		if len(parts) != 2 {
			return "", nil, fmt.Errorf("falta el valor contraentrega (formato: guía,valor)")
		}
		tracking = strings.TrimSpace(parts[0])
		v, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil {
			return "", nil, fmt.Errorf("valor %q no es un número", strings.TrimSpace(parts[1]))
		}
		if v <= 0 {
			return "", nil, fmt.Errorf("el valor debe ser positivo")
		}
		value = &v
	}

	tracking = strings.TrimSpace(tracking)
	if len(tracking) < minTrackingLen {
		return "", nil, fmt.Errorf("guía %q demasiado corta (mínimo %d caracteres)", tracking, minTrackingLen)
	}
	return tracking, value, nil
}
