package client

import (
	"fmt"
	"time"

	"github.com/NicolasHaas/gopanel/pkg/model"
)

// ReportTimeLayout renders the creation time day-first, as the panel's
// audience expects.
const ReportTimeLayout = "02/01/2006 15.04.05"

// FormatReport renders a creation result as the text shown to the user.
// The output depends only on its arguments.
func FormatReport(r model.CreationResult, created time.Time, by string) string {
	return fmt.Sprintf(`Panel created successfully!

Login Details:
Domain: %s
Username: %s
Password: %s

User Info:
User ID: %s
Email: %s

Server Specs:
Server ID: %s
Server Name: %s
RAM: %s
CPU: %s
Storage: %s

Created: %s
By: %s

Panel will be active in 2-3 minutes.`,
		r.LoginURL, r.User.Username, r.User.Password,
		r.User.ID, r.User.Email,
		r.Server.ID, r.Server.Name, r.Server.RAM, r.Server.CPU, r.Server.Disk,
		created.Format(ReportTimeLayout), by,
	)
}
