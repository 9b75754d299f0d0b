package mysql

// Append-only journal of domain events for downstream indexing. The engine
// never reads it back; consumers query it directly.
const createEventsSQL = `
CREATE TABLE IF NOT EXISTS booking_events (
  id         BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
  kind       VARCHAR(32)  NOT NULL,
  room_id    BIGINT       NOT NULL,
  day        TINYINT      NOT NULL,
  month      TINYINT      NOT NULL,
  year       SMALLINT     NOT NULL,
  booker     VARCHAR(128) NOT NULL,
  owner      VARCHAR(128) NOT NULL,
  price      BIGINT       NOT NULL,
  created_at TIMESTAMP    NOT NULL DEFAULT CURRENT_TIMESTAMP,
  PRIMARY KEY (id),
  KEY idx_room_date (room_id, year, month, day)
)
`

const insertEventSQL = `
INSERT INTO booking_events (kind, room_id, day, month, year, booker, owner, price)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`

const selectEventsByRoomSQL = `
SELECT kind, room_id, day, month, year, booker, owner, price
FROM booking_events
WHERE room_id = ?
ORDER BY id
`
