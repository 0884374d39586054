package service

import (
	"bufio"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// periodInName finds a "Mon-YY" (or "Mon_YYYY") period in a file name.
var periodInName = regexp.MustCompile(`(?i)(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[-_ ]?(\d{4}|\d{2})`)

type ValidationError struct {
	Line    int
	Message string
}

type FileCheckerServiceImpl struct {
}

// CheckImportFile validates the header of an inbox file before it is queued.
// Any error rejects the whole file; the data owner has to fix and resend it.
func (f *FileCheckerServiceImpl) CheckImportFile(path string) ([]ValidationError, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)

	var (
		lineNum    int
		errors     []ValidationError
		headerLine int
		header     csvHeader
		dataRows   int
	)
	for scanner.Scan() {
		lineNum++
		line := strings.TrimRight(scanner.Text(), "\r")
		if lineNum == 1 {
			line = strings.TrimPrefix(line, "\uFEFF")
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		if headerLine == 0 {
			headerLine = lineNum
			header = (&CsvParseServiceImpl{}).inspectHeader(SplitCSVLine(line))
			if header.accountIdx < 0 && header.nameIdx < 0 {
				errors = append(errors, ValidationError{lineNum, "missing meter identification column"})
			}
			if len(header.dayColumns) == 0 {
				errors = append(errors, ValidationError{lineNum, "no day columns found"})
			}
			continue
		}
		dataRows++
	}
	if err := scanner.Err(); err != nil {
		return errors, err
	}

	if headerLine == 0 {
		errors = append(errors, ValidationError{0, "file is empty"})
	} else if dataRows == 0 {
		errors = append(errors, ValidationError{0, "no data rows after header"})
	}
	return errors, nil
}

// InferPeriod reads the reporting period from a file name such as
// "water_Jan-26.csv", defaulting to the month of now.
func (f *FileCheckerServiceImpl) InferPeriod(name string, now time.Time) (string, int) {
	if m := periodInName.FindStringSubmatch(name); m != nil {
		year, _ := strconv.Atoi(m[2])
		if year < 100 {
			year += 2000
		}
		monthNum := monthOrdinal[strings.ToUpper(m[1][:1])+strings.ToLower(m[1][1:])]
		return FormatMonth(monthNum, year), year
	}
	now = now.UTC()
	return FormatMonth(int(now.Month()), now.Year()), now.Year()
}
