package main

import (
	"amap/config"
	"amap/database"
	"amap/models"
	"amap/utils"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"gorm.io/gorm"
)

const usage = "usage: importCatalog <members|products> <file.csv> | importCatalog superadmin <email> <password>"

// Usage: go run ./scripts members members.csv
//        go run ./scripts products products.csv
//        go run ./scripts superadmin claire@example.org 'secret'
func main() {
	if len(os.Args) < 3 {
		log.Fatal(usage)
	}
	kind := os.Args[1]

	config.LoadConfig()
	if err := database.ConnectDb(); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if kind == "superadmin" {
		if len(os.Args) != 4 {
			log.Fatal(usage)
		}
		if err := promoteSuperAdmin(database.Database.Db, os.Args[2], os.Args[3], config.AppConfig.SaltRound); err != nil {
			log.Fatalf("Failed to promote %s: %v", os.Args[2], err)
		}
		log.Printf("%s is now %s", os.Args[2], models.RoleSuperAdmin)
		return
	}
	if len(os.Args) != 3 {
		log.Fatal(usage)
	}
	path := os.Args[2]

	file, err := os.Open(path)
	if err != nil {
		log.Fatalf("Failed to open CSV file: %v", err)
	}
	defer file.Close()

	var result importResult
	switch kind {
	case "members":
		result, err = importMembers(database.Database.Db, file)
	case "products":
		result, err = importProducts(database.Database.Db, file)
	default:
		log.Fatalf("Unknown import kind %q", kind)
	}
	if err != nil {
		log.Fatalf("Import failed: %v", err)
	}

	log.Printf("=== Import Complete ===")
	log.Printf("Inserted: %d", result.Inserted)
	log.Printf("Updated: %d", result.Updated)
	log.Printf("Skipped: %d", result.Skipped)
	log.Printf("Total processed: %d", result.Inserted+result.Updated+result.Skipped)
}

type importResult struct {
	Inserted int
	Updated  int
	Skipped  int
}

// readRows returns the data rows of a CSV file and a header name -> column index map
func readRows(r io.Reader) ([][]string, map[string]int, error) {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("read CSV: %w", err)
	}
	if len(records) < 2 {
		return nil, nil, errors.New("CSV file is empty or has only headers")
	}

	headerIndex := make(map[string]int)
	for i, h := range records[0] {
		headerIndex[strings.TrimSpace(h)] = i
	}
	return records[1:], headerIndex, nil
}

// importMembers upserts members keyed by email
func importMembers(db *gorm.DB, r io.Reader) (importResult, error) {
	var result importResult
	rows, headerIndex, err := readRows(r)
	if err != nil {
		return result, err
	}

	for _, row := range rows {
		member := models.Member{
			FirstName:  getField(row, headerIndex, "firstName"),
			LastName:   getField(row, headerIndex, "lastName"),
			Email:      strings.ToLower(getField(row, headerIndex, "email")),
			Mobile:     getField(row, headerIndex, "mobile"),
			Address:    getField(row, headerIndex, "address"),
			City:       getField(row, headerIndex, "city"),
			PostalCode: getField(row, headerIndex, "postalCode"),
			Role:       models.RoleMember,
		}

		// Skip rows without identity
		if member.Email == "" || member.LastName == "" {
			result.Skipped++
			continue
		}

		var existing models.Member
		err := db.Where("email = ?", member.Email).First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := db.Create(&member).Error; err != nil {
				log.Printf("Error inserting member %s: %v", member.Email, err)
				result.Skipped++
				continue
			}
			result.Inserted++
		case err != nil:
			return result, err
		default:
			existing.FirstName = member.FirstName
			existing.LastName = member.LastName
			existing.Mobile = member.Mobile
			existing.Address = member.Address
			existing.City = member.City
			existing.PostalCode = member.PostalCode
			if err := db.Save(&existing).Error; err != nil {
				log.Printf("Error updating member %s: %v", member.Email, err)
				result.Skipped++
				continue
			}
			result.Updated++
		}
	}
	return result, nil
}

// importProducts upserts products keyed by name
func importProducts(db *gorm.DB, r io.Reader) (importResult, error) {
	var result importResult
	rows, headerIndex, err := readRows(r)
	if err != nil {
		return result, err
	}

	for _, row := range rows {
		product := models.Product{
			Name: getField(row, headerIndex, "name"),
			Unit: strings.ToUpper(getField(row, headerIndex, "unit")),
		}
		if product.Name == "" || (product.Unit != models.UnitKG && product.Unit != models.UnitPiece) {
			result.Skipped++
			continue
		}

		var existing models.Product
		err := db.Where("name = ?", product.Name).First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := db.Create(&product).Error; err != nil {
				return result, err
			}
			result.Inserted++
		case err != nil:
			return result, err
		default:
			if err := db.Model(&existing).Update("unit", product.Unit).Error; err != nil {
				return result, err
			}
			result.Updated++
		}
	}
	return result, nil
}

// promoteSuperAdmin gives an imported member the SUPER-ADMIN role and a
// password, so the first back-office login exists before any admin does
func promoteSuperAdmin(db *gorm.DB, email, password string, saltRound int) error {
	if len(password) < 8 {
		return errors.New("password must be at least 8 characters long")
	}
	hashed, err := utils.HashPassword(password, saltRound)
	if err != nil {
		return err
	}

	res := db.Model(&models.Member{}).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		Updates(map[string]interface{}{"role": models.RoleSuperAdmin, "password": hashed})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("no member with email %s, import it first", email)
	}
	return nil
}

// getField safely gets a field from the row by header name
func getField(row []string, headerIndex map[string]int, field string) string {
	if idx, ok := headerIndex[field]; ok && idx < len(row) {
		return strings.TrimSpace(row[idx])
	}
	return ""
}
