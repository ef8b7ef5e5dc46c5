// Package auth implements the account layer of the top-blog backend:
// registration, password sessions backed by signed JWT cookies, permission
// bits, profile updates and the email driven password reset and confirmation
// flows. Database work is funneled through a bounded worker pool so request
// fanout never outruns the connection pool.
package auth
